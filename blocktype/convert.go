package blocktype

// Converter translates parallel type and data arrays from one registry into another. It never
// modifies its inputs.
type Converter func(blocks []uint16, data []uint8) ([]uint16, []uint8)

// NewConverter returns a converter from src states into dest states. The converter is the
// identity only when both registries hold the same tables.
func NewConverter(dest, src *Registry) Converter {
	if dest == src || dest.Equal(src) {
		return func(blocks []uint16, data []uint8) ([]uint16, []uint8) {
			return blocks, data
		}
	}

	table := make([]State, src.idLimit*MaxData)
	for id := 0; id < src.idLimit; id++ {
		for d := 0; d < MaxData; d++ {
			out := dest.fallback
			if name, ok := src.StateName(State{ID: uint16(id), Data: uint8(d)}); ok {
				if s, ok := dest.Lookup(name); ok {
					out = s
				}
			}
			table[id*MaxData+d] = out
		}
	}

	return func(blocks []uint16, data []uint8) ([]uint16, []uint8) {
		outBlocks := make([]uint16, len(blocks))
		outData := make([]uint8, len(data))
		for i, id := range blocks {
			if int(id) >= src.idLimit {
				outBlocks[i], outData[i] = dest.fallback.ID, dest.fallback.Data
				continue
			}
			s := table[int(id)*MaxData+int(data[i]&0xF)]
			outBlocks[i], outData[i] = s.ID, s.Data
		}
		return outBlocks, outData
	}
}
