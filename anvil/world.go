package anvil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Tnze/go-mc/nbt"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/astei/worldcopy/blocktype"
	"github.com/astei/worldcopy/world"
)

// OpenWorld loads every chunk of the region files under root into a memory dimension that
// uses reg as its block types. root may be either a world directory or its region directory.
// Region files are decoded concurrently and the first failure is returned.
func OpenWorld(root string, reg *blocktype.Registry, log *logrus.Logger) (dim *world.MemoryDimension, err error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if info, statErr := os.Stat(filepath.Join(root, "region")); statErr == nil && info.IsDir() {
		root = filepath.Join(root, "region")
	}

	files, err := os.ReadDir(root)
	if err != nil {
		return
	}

	var regionFiles []string
	for _, possibleRegionFile := range files {
		if !possibleRegionFile.IsDir() && strings.HasSuffix(possibleRegionFile.Name(), ".mca") {
			log.Debugf("discovered %s", possibleRegionFile.Name())
			regionFiles = append(regionFiles, filepath.Join(root, possibleRegionFile.Name()))
		}
	}

	var mu sync.Mutex
	allChunks := make(map[world.ChunkCoord]*world.Chunk)

	var g errgroup.Group
	for _, path := range regionFiles {
		g.Go(func() error {
			chunks, err := readRegionFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, chunk := range chunks {
				allChunks[chunk.Coord()] = chunk
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	dim = world.NewMemoryDimension(reg)
	for _, chunk := range allChunks {
		dim.PutChunk(chunk)
	}
	log.Infof("Discovered %d chunks in %d region files of %s", len(allChunks), len(regionFiles), root)
	return dim, nil
}

func readRegionFile(path string) ([]*world.Chunk, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := NewRegionReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("could not open region %s: %w", path, err)
	}
	defer reader.Close()
	return ReadRegion(reader)
}

// ReadRegion decodes every chunk present in a region.
func ReadRegion(reader *RegionReader) ([]*world.Chunk, error) {
	var chunks []*world.Chunk
	for x := 0; x < RegionSize; x++ {
		for z := 0; z < RegionSize; z++ {
			if !reader.ChunkExists(x, z) {
				continue
			}
			chunk, err := readChunk(reader, x, z)
			if errors.Is(err, ErrNoChunk) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("could not read chunk %d,%d in %s: %w", x, z, reader.Name, err)
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func readChunk(reader *RegionReader, x, z int) (*world.Chunk, error) {
	chunkReader, err := reader.ReadChunk(x, z)
	if err != nil {
		return nil, err
	}

	var root chunkRoot
	if _, err = nbt.NewDecoder(chunkReader).Decode(&root); err != nil {
		return nil, fmt.Errorf("could not deserialize: %w", err)
	}
	return root.Level.toChunk()
}
