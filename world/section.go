package world

const (
	SectionSize   = 16
	SectionVolume = SectionSize * SectionSize * SectionSize
	// NibbleArraySize is the byte length of a section-sized array of 4-bit values.
	NibbleArraySize = SectionVolume / 2
)

// Pos is an integer world position.
type Pos [3]int

func (p Pos) X() int { return p[0] }
func (p Pos) Y() int { return p[1] }
func (p Pos) Z() int { return p[2] }

func (p Pos) Add(o Pos) Pos { return Pos{p[0] + o[0], p[1] + o[1], p[2] + o[2]} }
func (p Pos) Sub(o Pos) Pos { return Pos{p[0] - o[0], p[1] - o[1], p[2] - o[2]} }

// Chunk returns the coordinate of the chunk containing p.
func (p Pos) Chunk() ChunkCoord { return ChunkCoord{X: p[0] >> 4, Z: p[2] >> 4} }

type ChunkCoord struct {
	X int
	Z int
}

// Index returns the offset of local section coordinates in a section array.
func Index(x, y, z int) int {
	return y<<8 | z<<4 | x
}

// Section is a 16x16x16 cube of block types and auxiliary data, both in Index order.
type Section struct {
	Y int

	Blocks [SectionVolume]uint16
	Data   [SectionVolume]uint8

	// Stored light as nibble arrays; nil when absent or invalidated.
	BlockLight []byte
	SkyLight   []byte
}

func (s *Section) Block(x, y, z int) (uint16, uint8) {
	i := Index(x, y, z)
	return s.Blocks[i], s.Data[i]
}

func (s *Section) SetBlock(x, y, z int, id uint16, data uint8) {
	i := Index(x, y, z)
	s.Blocks[i] = id
	s.Data[i] = data
}

// Empty reports whether every block of the section is id 0.
func (s *Section) Empty() bool {
	for _, b := range s.Blocks {
		if b != 0 {
			return false
		}
	}
	return true
}

// Nibble reads the 4-bit value at index i of a packed nibble array.
func Nibble(arr []byte, i int) uint8 {
	if i&1 == 1 {
		return arr[i>>1] >> 4
	}
	return arr[i>>1] & 0xF
}

// SetNibble writes the 4-bit value v at index i of a packed nibble array.
func SetNibble(arr []byte, i int, v uint8) {
	if i&1 == 1 {
		arr[i>>1] = arr[i>>1]&0xF | v<<4
	} else {
		arr[i>>1] = arr[i>>1]&0xF0 | v&0xF
	}
}
