package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shotContext struct {
	Show    string
	Seq     string
	Shot    string
	Comment *string
	Tags    []string
}

func shotBinder() *Binder[shotContext] {
	return New[shotContext]().
		String("show", func(c *shotContext) *string { return &c.Show }).
		String("seq", func(c *shotContext) *string { return &c.Seq }).
		String("shot", func(c *shotContext) *string { return &c.Shot }).
		Optional("comment", func(c *shotContext) **string { return &c.Comment })
}

func TestBinder_GetSet(t *testing.T) {
	b := shotBinder()
	var rec shotContext

	_, ok := b.Get(&rec, "show")
	assert.False(t, ok, "empty string reads as unset")

	require.NoError(t, b.Set(&rec, "show", "demo"))
	v, ok := b.Get(&rec, "show")
	assert.True(t, ok)
	assert.Equal(t, "demo", v)
	assert.Equal(t, "demo", rec.Show)

	_, ok = b.Get(&rec, "comment")
	assert.False(t, ok)
	require.NoError(t, b.Set(&rec, "comment", ""))
	v, ok = b.Get(&rec, "comment")
	assert.True(t, ok, "optional fields distinguish empty from unset")
	assert.Empty(t, v)

	err := b.Set(&rec, "nope", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, ok = b.Get(&rec, "nope")
	assert.False(t, ok)
}

func TestBinder_Names(t *testing.T) {
	b := shotBinder()
	assert.Equal(t, []string{"show", "seq", "shot", "comment"}, b.Names())
	assert.True(t, b.Has("seq"))
	assert.True(t, b.Declares("seq"))
	assert.False(t, b.Has("task"))
}

func TestBinder_Clone(t *testing.T) {
	b := shotBinder().WithClone(func(c shotContext) shotContext {
		c.Tags = append([]string(nil), c.Tags...)
		return c
	})
	orig := shotContext{Show: "demo", Tags: []string{"a"}}
	cp := b.Clone(orig)
	cp.Show = "other"
	cp.Tags[0] = "b"
	assert.Equal(t, "demo", orig.Show)
	assert.Equal(t, "a", orig.Tags[0])
}

func TestBinder_Values(t *testing.T) {
	b := shotBinder()
	rec := shotContext{Show: "demo", Shot: "0010"}
	assert.Equal(t, map[string]string{"show": "demo", "shot": "0010"}, b.Values(&rec))
}

func TestFieldsBinder(t *testing.T) {
	b := FieldsBinder("file_name")
	var rec Fields

	assert.True(t, b.Has("anything"))
	assert.False(t, b.Declares("anything"))
	assert.True(t, b.Declares("file_name"))

	require.NoError(t, b.Set(&rec, "show", "demo"))
	require.NoError(t, b.Set(&rec, "file_name", "plate"))
	assert.Equal(t, Fields{"show": "demo", "file_name": "plate"}, rec)

	cp := b.Clone(rec)
	cp["show"] = "other"
	assert.Equal(t, "demo", rec["show"])

	rec["empty"] = ""
	_, ok := b.Get(&rec, "empty")
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"show": "demo", "file_name": "plate"}, b.Values(&rec))
}

func TestFilter_Key(t *testing.T) {
	a := Filter{"show": "demo", "seq": "ABC"}
	b := Filter{"seq": "ABC", "show": "demo"}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Filter{"show": "demo"}.Key())
	assert.Empty(t, Filter{}.Key())
	assert.Equal(t, Filter(nil).Key(), Filter{}.Key())

	// Separators inside values cannot collide.
	assert.NotEqual(t,
		Filter{"a": `x","b"="y`}.Key(),
		Filter{"a": "x", "b": "y"}.Key())
}

func TestMatches(t *testing.T) {
	b := shotBinder()
	rec := shotContext{Show: "demo", Seq: "ABC"}

	assert.True(t, Matches(b, &rec, nil))
	assert.True(t, Matches(b, &rec, Filter{"show": "demo"}))
	assert.True(t, Matches(b, &rec, Filter{"show": "demo", "seq": "ABC"}))
	assert.False(t, Matches(b, &rec, Filter{"show": "other"}))
	assert.False(t, Matches(b, &rec, Filter{"shot": ""}))
	assert.False(t, Matches(b, &rec, Filter{"missing": "x"}))
}
