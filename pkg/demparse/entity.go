package demparse

import (
	"slices"
)

// Entity handles pack a serial number above the 14 bit index, so masking
// recovers the index an entity lives at.
const entityIndexMask = 0x3fff

// Entity is the live state of one replicated game object.
type Entity struct {
	index     int32
	classID   int32
	className string
	fields    map[string]any
}

func (e *Entity) Index() int32 {
	return e.index
}

func (e *Entity) ClassID() int32 {
	return e.classID
}

func (e *Entity) ClassName() string {
	return e.className
}

// Map exposes the raw property state. Treat it as read only.
func (e *Entity) Map() map[string]any {
	return e.fields
}

// GetString returns the property at path when present and string typed.
func (e *Entity) GetString(path string) (string, bool) {
	value, found := e.fields[path].(string)

	return value, found
}

// GetFloat32 returns the property at path when present and float typed.
func (e *Entity) GetFloat32(path string) (float32, bool) {
	value, found := e.fields[path].(float32)

	return value, found
}

// GetInt32 returns the property at path when present and signed int typed.
func (e *Entity) GetInt32(path string) (int32, bool) {
	value, found := e.fields[path].(int32)

	return value, found
}

// GetUint64 returns the property at path when present and unsigned typed.
func (e *Entity) GetUint64(path string) (uint64, bool) {
	value, found := e.fields[path].(uint64)

	return value, found
}

// Entities indexes live game objects and the class registry naming them.
type Entities struct {
	active     map[int32]*Entity
	classNames map[int32]string
}

func newEntities() *Entities {
	return &Entities{
		active:     map[int32]*Entity{},
		classNames: map[int32]string{},
	}
}

func (es *Entities) registerClass(classID int32, name string) {
	es.classNames[classID] = name
}

// applyBaseline creates an entity, or replaces it entirely when the index is
// already occupied.
func (es *Entities) applyBaseline(index int32, classID int32, fields []FieldValue) *Entity {
	entity := &Entity{
		index:     index,
		classID:   classID,
		className: es.classNames[classID],
		fields:    make(map[string]any, len(fields)),
	}

	for _, field := range fields {
		entity.fields[field.Path] = field.Value
	}

	es.active[index] = entity

	return entity
}

// applyDelta merges changed fields into an existing entity. Deltas for
// indices never created are dropped, returning nil.
func (es *Entities) applyDelta(index int32, fields []FieldValue) *Entity {
	entity, found := es.active[index]
	if !found {
		return nil
	}

	for _, field := range fields {
		entity.fields[field.Path] = field.Value
	}

	return entity
}

// remove drops the entity at index, returning its final state or nil when the
// index was already vacant.
func (es *Entities) remove(index int32) *Entity {
	entity, found := es.active[index]
	if !found {
		return nil
	}

	delete(es.active, index)

	return entity
}

// filter returns live entities matching the predicate in index order.
func (es *Entities) filter(predicate func(*Entity) bool) []*Entity {
	indices := make([]int32, 0, len(es.active))

	for index := range es.active {
		indices = append(indices, index)
	}

	slices.Sort(indices)

	var matched []*Entity

	for _, index := range indices {
		if entity := es.active[index]; predicate(entity) {
			matched = append(matched, entity)
		}
	}

	return matched
}

func (es *Entities) findByHandle(handle uint64) *Entity {
	return es.active[int32(handle&entityIndexMask)]
}
