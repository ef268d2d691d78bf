package blocktype

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// MaxData is the exclusive upper bound of auxiliary data values. Data is stored as a nibble.
const MaxData = 16

var ErrInvalidRegistry = errors.New("blocktype: invalid registry")

// State is a (type, auxiliary data) pair.
type State struct {
	ID   uint16
	Data uint8
}

// Type describes one block type of a registry. Variants names individual data values; data
// values without a name are addressed as "name:data".
type Type struct {
	ID         uint16
	Name       string
	Brightness uint8
	Opacity    uint8
	Variants   map[uint8]string
}

// Registry is an immutable table of block types. It is safe to share between goroutines.
type Registry struct {
	name    string
	idLimit int

	brightness []uint8
	opacity    []uint8
	types      []*Type

	byName   map[string]State
	fallback State
}

// NewRegistry builds a registry with ids in [0, idLimit). Inputs that another registry cannot
// map into this one become fallback.
func NewRegistry(name string, idLimit int, types []Type, fallback State) (*Registry, error) {
	if idLimit <= 0 || idLimit > 1<<16 {
		return nil, fmt.Errorf("%w: id limit %d out of range", ErrInvalidRegistry, idLimit)
	}
	r := &Registry{
		name:       name,
		idLimit:    idLimit,
		brightness: make([]uint8, idLimit),
		opacity:    make([]uint8, idLimit),
		types:      make([]*Type, idLimit),
		byName:     make(map[string]State),
		fallback:   fallback,
	}
	for i := range types {
		t := types[i]
		if int(t.ID) >= idLimit {
			return nil, fmt.Errorf("%w: type %s has id %d beyond limit %d", ErrInvalidRegistry, t.Name, t.ID, idLimit)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("%w: type %d has no name", ErrInvalidRegistry, t.ID)
		}
		if r.types[t.ID] != nil {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidRegistry, t.ID)
		}
		if t.Brightness > 15 || t.Opacity > 15 {
			return nil, fmt.Errorf("%w: type %s has light values above 15", ErrInvalidRegistry, t.Name)
		}
		variants := make(map[uint8]string, len(t.Variants))
		for data, variant := range t.Variants {
			if data >= MaxData {
				return nil, fmt.Errorf("%w: type %s has variant data %d", ErrInvalidRegistry, t.Name, data)
			}
			variants[data] = variant
			r.byName[variant] = State{ID: t.ID, Data: data}
		}
		t.Variants = variants
		r.types[t.ID] = &t
		r.brightness[t.ID] = t.Brightness
		r.opacity[t.ID] = t.Opacity
		r.byName[t.Name] = State{ID: t.ID}
	}
	if int(fallback.ID) >= idLimit || fallback.Data >= MaxData {
		return nil, fmt.Errorf("%w: fallback %v out of range", ErrInvalidRegistry, fallback)
	}
	return r, nil
}

func (r *Registry) Name() string { return r.name }

// IDLimit returns the exclusive upper bound of type ids.
func (r *Registry) IDLimit() int { return r.idLimit }

func (r *Registry) Fallback() State { return r.fallback }

// Brightness returns the light emitted by id. Ids outside the registry emit no light.
func (r *Registry) Brightness(id uint16) uint8 {
	if int(id) >= r.idLimit {
		return 0
	}
	return r.brightness[id]
}

// Opacity returns how much light id absorbs. Ids outside the registry are transparent.
func (r *Registry) Opacity(id uint16) uint8 {
	if int(id) >= r.idLimit {
		return 0
	}
	return r.opacity[id]
}

// Type returns the registered type for id.
func (r *Registry) Type(id uint16) (Type, bool) {
	if int(id) >= r.idLimit || r.types[id] == nil {
		return Type{}, false
	}
	return *r.types[id], true
}

// StateName returns the canonical name of s. It fails for unregistered ids.
func (r *Registry) StateName(s State) (string, bool) {
	t, ok := r.Type(s.ID)
	if !ok || s.Data >= MaxData {
		return "", false
	}
	if variant, ok := t.Variants[s.Data]; ok {
		return variant, true
	}
	if s.Data == 0 {
		return t.Name, true
	}
	return t.Name + ":" + strconv.Itoa(int(s.Data)), true
}

// Equal reports whether o holds the same ids, names, variants, light values and fallback as r.
// The registry name is not compared.
func (r *Registry) Equal(o *Registry) bool {
	if r.idLimit != o.idLimit || r.fallback != o.fallback {
		return false
	}
	if !slices.Equal(r.brightness, o.brightness) || !slices.Equal(r.opacity, o.opacity) {
		return false
	}
	return slices.EqualFunc(r.types, o.types, func(a, b *Type) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Name == b.Name && maps.Equal(a.Variants, b.Variants)
	})
}

// Lookup resolves a canonical state name produced by StateName on any registry.
func (r *Registry) Lookup(name string) (State, bool) {
	if s, ok := r.byName[name]; ok {
		return s, true
	}
	i := strings.LastIndexByte(name, ':')
	if i < 0 {
		return State{}, false
	}
	data, err := strconv.Atoi(name[i+1:])
	if err != nil || data < 0 || data >= MaxData {
		return State{}, false
	}
	s, ok := r.byName[name[:i]]
	if !ok || s.Data != 0 {
		return State{}, false
	}
	s.Data = uint8(data)
	return s, true
}
