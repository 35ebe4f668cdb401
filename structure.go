// Copyright 2021 Airbus Defence and Space
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gdalbridge

// Block is a window inside a dataset, starting at pixel X0,Y0 and spanning
// W,H pixels.
type Block struct {
	X0, Y0 int
	W, H   int
	grid   blockGrid
	i, j   int
}

// blockGrid describes how a raster of size sx,sy is split into bw,bh blocks
type blockGrid struct {
	sx, sy int
	bw, bh int
}

func (g blockGrid) count() (int, int) {
	return (g.sx + g.bw - 1) / g.bw, (g.sy + g.bh - 1) / g.bh
}

// size returns the number of pixels of block i,j that fall inside the raster.
// Blocks of the last row and column may be truncated.
func (g blockGrid) size(i, j int) (int, int) {
	nx, ny := g.count()
	if i < 0 || j < 0 || i >= nx || j >= ny {
		return 0, 0
	}
	w, h := g.bw, g.bh
	if i == nx-1 {
		w = g.sx - i*g.bw
	}
	if j == ny-1 {
		h = g.sy - j*g.bh
	}
	return w, h
}

func (g blockGrid) block(i, j int) Block {
	w, h := g.size(i, j)
	return Block{X0: i * g.bw, Y0: j * g.bh, W: w, H: h, grid: g, i: i, j: j}
}

// Next returns the following block in scanline order. It returns Block{},false
// when there are no more blocks in the scanlines
func (b Block) Next() (Block, bool) {
	nx, ny := b.grid.count()
	i, j := b.i+1, b.j
	if i >= nx {
		i = 0
		j++
	}
	if j >= ny {
		return Block{}, false
	}
	return b.grid.block(i, j), true
}

// BlockIterator returns the blocks covering a sizeX,sizeY dataset.
// All sizes must be strictly positive.
func BlockIterator(sizeX, sizeY int, blockSizeX, blockSizeY int) Block {
	return blockGrid{sx: sizeX, sy: sizeY, bw: blockSizeX, bh: blockSizeY}.block(0, 0)
}

// BandStructure implements Structure for a Band
type BandStructure struct {
	SizeX, SizeY           int
	BlockSizeX, BlockSizeY int
	Scale, Offset          float64
	DataType               DataType
}

// DatasetStructure implements Structure for a Dataset
type DatasetStructure struct {
	BandStructure
	NBands int
}

func (is BandStructure) grid() blockGrid {
	return blockGrid{sx: is.SizeX, sy: is.SizeY, bw: is.BlockSizeX, bh: is.BlockSizeY}
}

// FirstBlock returns the topleft block definition
func (is BandStructure) FirstBlock() Block {
	return is.grid().block(0, 0)
}

// BlockCount returns the number of blocks in the x and y dimensions
func (is BandStructure) BlockCount() (int, int) {
	return is.grid().count()
}

// ActualBlockSize returns the number of pixels in the x and y dimensions
// that actually contain data for the given x,y block
func (is BandStructure) ActualBlockSize(blockX, blockY int) (int, int) {
	return is.grid().size(blockX, blockY)
}
