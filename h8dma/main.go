// Command h8dma runs DMA scenarios against the H8 DMA controller model.
package main

import "github.com/sarchlab/h8dma/h8dma/cmd"

func main() {
	cmd.Execute()
}
