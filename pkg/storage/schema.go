// Package storage schema catalog.
//
// The Catalog holds every class and property definition, keeps the id
// counters that hand out new ClassId/PropertyId/IndexId values, and
// validates every mutation against the rules in validate.hpp: well-formed
// names, no duplicate classes/properties, no property overriding an
// inherited property with a different type, and id-space exhaustion.
//
// Schema definitions live in memory, guarded by a RWMutex, and are rebuilt
// from the kv-backed class/property/index tables at Open (see catalog_io.go).
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// validNamePattern matches GLOBAL_VALID_NAME_PATTERN from the original
// engine: a letter or underscore, followed by letters, digits, underscores.
var validNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClassDef describes one class (vertex or edge type) in the catalog.
type ClassDef struct {
	ID         ClassId
	Name       string
	Type       ClassType
	SuperClass ClassId // 0 if this class has no parent
}

// PropertyDef describes one property, scoped to the class that declares it.
type PropertyDef struct {
	ID    PropertyId
	Class ClassId
	Name  string
	Type  PropertyType
}

// IndexDef describes a property index.
type IndexDef struct {
	ID       IndexId
	Class    ClassId
	Property PropertyId
	Name     string
	Unique   bool
}

// Catalog is NogDB's schema catalog: classes, properties and indexes, plus
// the counters used to assign new ids.
type Catalog struct {
	mu sync.RWMutex

	classes       map[ClassId]*ClassDef
	classesByName map[string]ClassId

	// properties is keyed by the declaring class id; a class's effective
	// property set also includes everything declared by its superclasses.
	properties map[ClassId]map[PropertyId]*PropertyDef

	indexes       map[IndexId]*IndexDef
	indexesByName map[string]IndexId

	maxClassID    ClassId
	maxPropertyID PropertyId
	maxIndexID    IndexId
}

// NewCatalog returns an empty catalog with its id counters starting just
// past the reserved pseudo-property range.
func NewCatalog() *Catalog {
	return &Catalog{
		classes:       make(map[ClassId]*ClassDef),
		classesByName: make(map[string]ClassId),
		properties:    make(map[ClassId]map[PropertyId]*PropertyDef),
		indexes:       make(map[IndexId]*IndexDef),
		indexesByName: make(map[string]IndexId),
		maxPropertyID: InitNumProperties - 1,
	}
}

func validateName(name string, maxLen int, errCode ErrorCode, kind string) error {
	if len(name) == 0 || len(name) > maxLen {
		return newErr(errCode, "%s name %q must be 1-%d characters", kind, name, maxLen)
	}
	if !validNamePattern.MatchString(name) {
		return newErr(errCode, "%s name %q does not match %s", kind, name, validNamePattern.String())
	}
	return nil
}

// AddClass registers a new class. superClass may be 0 for a root class.
func (c *Catalog) AddClass(name string, typ ClassType, superClass ClassId) (*ClassDef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateName(name, MaxClassNameLen, CodeInvalidClassName, "class"); err != nil {
		return nil, err
	}
	if _, exists := c.classesByName[name]; exists {
		return nil, newErr(CodeDuplicateClass, "class %q already exists", name)
	}
	if superClass != 0 {
		super, ok := c.classes[superClass]
		if !ok {
			return nil, newErr(CodeNoExistClass, "superclass id %d does not exist", superClass)
		}
		if super.Type != typ {
			return nil, newErr(CodeMismatchClassType, "class %q has type %s, cannot subclass %q of type %s",
				name, typ, super.Name, super.Type)
		}
	}
	if c.maxClassID >= ClassIDUpperLimit {
		return nil, newErr(CodeLimitDBSchema, "class id space exhausted")
	}
	c.maxClassID++
	def := &ClassDef{ID: c.maxClassID, Name: name, Type: typ, SuperClass: superClass}
	c.classes[def.ID] = def
	c.classesByName[name] = def.ID
	c.properties[def.ID] = make(map[PropertyId]*PropertyDef)
	return def, nil
}

// ClassByID returns the class definition for id.
func (c *Catalog) ClassByID(id ClassId) (*ClassDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.classes[id]
	if !ok {
		return nil, newErr(CodeNoExistClass, "class id %d does not exist", id)
	}
	return def, nil
}

// ClassByName returns the class definition with the given name.
func (c *Catalog) ClassByName(name string) (*ClassDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.classesByName[name]
	if !ok {
		return nil, newErr(CodeNoExistClass, "class %q does not exist", name)
	}
	return c.classes[id], nil
}

// SubClasses returns every class whose SuperClass is parent, including
// transitively — used for FindSubClassOf (§4.9).
func (c *Catalog) SubClasses(parent ClassId) []*ClassDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*ClassDef
	var walk func(ClassId)
	walk = func(id ClassId) {
		for _, def := range c.classes {
			if def.SuperClass == id {
				out = append(out, def)
				walk(def.ID)
			}
		}
	}
	walk(parent)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reparentSubclasses re-points every direct child of dropped to dropped's
// own superclass (orphaning them to root if dropped had none), the cascading
// step spec.md §4.4 requires before a class can be removed.
func (c *Catalog) reparentSubclasses(dropped ClassId) {
	newParent := c.classes[dropped].SuperClass
	for _, def := range c.classes {
		if def.SuperClass == dropped {
			def.SuperClass = newParent
		}
	}
}

// DropClass removes a class, re-parenting its subclasses first, and removes
// every property and index declared directly on it.
func (c *Catalog) DropClass(id ClassId) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.classes[id]
	if !ok {
		return newErr(CodeNoExistClass, "class id %d does not exist", id)
	}
	c.reparentSubclasses(id)
	for pid := range c.properties[id] {
		delete(c.properties[id], pid)
	}
	delete(c.properties, id)
	for idxID, idx := range c.indexes {
		if idx.Class == id {
			delete(c.indexes, idxID)
			delete(c.indexesByName, idx.Name)
		}
	}
	delete(c.classes, id)
	delete(c.classesByName, def.Name)
	return nil
}

// effectiveProperty walks class's ancestor chain looking for a property
// named name, returning it and true if found anywhere in the chain.
func (c *Catalog) effectiveProperty(class ClassId, name string) (*PropertyDef, bool) {
	for cur := class; cur != 0; {
		def, ok := c.classes[cur]
		if !ok {
			return nil, false
		}
		for _, p := range c.properties[cur] {
			if p.Name == name {
				return p, true
			}
		}
		cur = def.SuperClass
	}
	return nil, false
}

// AddProperty declares a new property on class.
func (c *Catalog) AddProperty(class ClassId, name string, typ PropertyType) (*PropertyDef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateName(name, MaxPropertyNameLen, CodeInvalidPropertyName, "property"); err != nil {
		return nil, err
	}
	if _, ok := c.classes[class]; !ok {
		return nil, newErr(CodeNoExistClass, "class id %d does not exist", class)
	}
	if existing, found := c.effectiveProperty(class, name); found {
		if existing.Class == class {
			return nil, newErr(CodeDuplicateProperty, "property %q already exists on class %d", name, class)
		}
		if existing.Type != typ {
			return nil, newErr(CodeOverrideProperty, "property %q inherited from class %d has type %s, cannot override with %s",
				name, existing.Class, existing.Type, typ)
		}
	}
	if c.maxPropertyID == ^PropertyId(0) {
		return nil, newErr(CodeLimitDBSchema, "property id space exhausted")
	}
	c.maxPropertyID++
	def := &PropertyDef{ID: c.maxPropertyID, Class: class, Name: name, Type: typ}
	c.properties[class][def.ID] = def
	return def, nil
}

// PropertyByName resolves a property name against class's own declarations
// and those of its ancestors.
func (c *Catalog) PropertyByName(class ClassId, name string) (*PropertyDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if def, ok := c.effectiveProperty(class, name); ok {
		return def, nil
	}
	return nil, newErr(CodeNoExistProperty, "property %q does not exist on class %d", name, class)
}

// Properties returns every property declared directly on class (not
// including inherited ones).
func (c *Catalog) Properties(class ClassId) []*PropertyDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*PropertyDef, 0, len(c.properties[class]))
	for _, p := range c.properties[class] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// generateIndexName deterministically derives an index name from its class
// and property when the caller doesn't supply one, the same sha256-digest
// approach the teacher uses for its own generated index names.
func generateIndexName(class ClassId, property PropertyId) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("idx:%d:%d", class, property)))
	return "idx_" + hex.EncodeToString(h[:])[:16]
}

// AddIndex creates a property index. If name is empty, one is generated
// deterministically from the class and property ids.
func (c *Catalog) AddIndex(class ClassId, property PropertyId, name string, unique bool) (*IndexDef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.classes[class]; !ok {
		return nil, newErr(CodeNoExistClass, "class id %d does not exist", class)
	}
	if _, ok := c.properties[class][property]; !ok {
		return nil, newErr(CodeNoExistProperty, "property id %d does not exist on class %d", property, class)
	}
	if name == "" {
		name = generateIndexName(class, property)
	}
	if _, exists := c.indexesByName[name]; exists {
		return nil, newErr(CodeDuplicateProperty, "index %q already exists", name)
	}
	c.maxIndexID++
	def := &IndexDef{ID: c.maxIndexID, Class: class, Property: property, Name: name, Unique: unique}
	c.indexes[def.ID] = def
	c.indexesByName[name] = def.ID
	return def, nil
}

// IndexByName resolves an index by its name.
func (c *Catalog) IndexByName(name string) (*IndexDef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.indexesByName[name]
	if !ok {
		return nil, newErr(CodeNoExistIndex, "index %q does not exist", name)
	}
	return c.indexes[id], nil
}

// DropIndex removes an index definition.
func (c *Catalog) DropIndex(id IndexId) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.indexes[id]
	if !ok {
		return newErr(CodeNoExistIndex, "index id %d does not exist", id)
	}
	delete(c.indexes, id)
	delete(c.indexesByName, def.Name)
	return nil
}
