package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAddClassAndProperty(t *testing.T) {
	c := NewCatalog()

	person, err := c.AddClass("person", ClassTypeVertex, 0)
	require.NoError(t, err)
	assert.Equal(t, "person", person.Name)

	nameProp, err := c.AddProperty(person.ID, "name", PropertyTypeText)
	require.NoError(t, err)
	assert.Equal(t, "name", nameProp.Name)

	got, err := c.PropertyByName(person.ID, "name")
	require.NoError(t, err)
	assert.Equal(t, nameProp.ID, got.ID)
}

func TestCatalogDuplicateClassRejected(t *testing.T) {
	c := NewCatalog()
	_, err := c.AddClass("person", ClassTypeVertex, 0)
	require.NoError(t, err)

	_, err = c.AddClass("person", ClassTypeVertex, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateClass)
}

func TestCatalogInvalidClassNameRejected(t *testing.T) {
	c := NewCatalog()
	_, err := c.AddClass("1bad-name", ClassTypeVertex, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidClassName)
}

func TestCatalogPropertyInheritance(t *testing.T) {
	c := NewCatalog()
	base, err := c.AddClass("entity", ClassTypeVertex, 0)
	require.NoError(t, err)
	_, err = c.AddProperty(base.ID, "createdAt", PropertyTypeBigInt)
	require.NoError(t, err)

	child, err := c.AddClass("person", ClassTypeVertex, base.ID)
	require.NoError(t, err)

	got, err := c.PropertyByName(child.ID, "createdAt")
	require.NoError(t, err)
	assert.Equal(t, base.ID, got.Class)
}

func TestCatalogOverridePropertyWithDifferentTypeRejected(t *testing.T) {
	c := NewCatalog()
	base, err := c.AddClass("entity", ClassTypeVertex, 0)
	require.NoError(t, err)
	_, err = c.AddProperty(base.ID, "tag", PropertyTypeText)
	require.NoError(t, err)

	child, err := c.AddClass("person", ClassTypeVertex, base.ID)
	require.NoError(t, err)

	_, err = c.AddProperty(child.ID, "tag", PropertyTypeInteger)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverrideProperty)
}

func TestCatalogSubclassTypeMismatchRejected(t *testing.T) {
	c := NewCatalog()
	person, err := c.AddClass("person", ClassTypeVertex, 0)
	require.NoError(t, err)

	_, err = c.AddClass("badEdge", ClassTypeEdge, person.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatchClassType)
}

func TestCatalogDropClassReparentsSubclasses(t *testing.T) {
	c := NewCatalog()
	root, err := c.AddClass("entity", ClassTypeVertex, 0)
	require.NoError(t, err)
	mid, err := c.AddClass("agent", ClassTypeVertex, root.ID)
	require.NoError(t, err)
	leaf, err := c.AddClass("person", ClassTypeVertex, mid.ID)
	require.NoError(t, err)

	require.NoError(t, c.DropClass(mid.ID))

	got, err := c.ClassByID(leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, got.SuperClass)
}

func TestCatalogSubClasses(t *testing.T) {
	c := NewCatalog()
	root, err := c.AddClass("entity", ClassTypeVertex, 0)
	require.NoError(t, err)
	mid, err := c.AddClass("agent", ClassTypeVertex, root.ID)
	require.NoError(t, err)
	_, err = c.AddClass("person", ClassTypeVertex, mid.ID)
	require.NoError(t, err)

	subs := c.SubClasses(root.ID)
	require.Len(t, subs, 2)
}

func TestCatalogAddIndexGeneratedName(t *testing.T) {
	c := NewCatalog()
	person, err := c.AddClass("person", ClassTypeVertex, 0)
	require.NoError(t, err)
	nameProp, err := c.AddProperty(person.ID, "name", PropertyTypeText)
	require.NoError(t, err)

	idx, err := c.AddIndex(person.ID, nameProp.ID, "", true)
	require.NoError(t, err)
	assert.NotEmpty(t, idx.Name)

	got, err := c.IndexByName(idx.Name)
	require.NoError(t, err)
	assert.Equal(t, idx.ID, got.ID)
}
