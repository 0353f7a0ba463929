package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCategory(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, IsCategory(c), c)
	}
	assert.False(t, IsCategory("hats"))
	assert.False(t, IsCategory(CollectionCrushes))
	assert.False(t, IsCategory(""))
}

func TestItemUnmarshalJSON(t *testing.T) {
	t.Run("bare string is a filename reference", func(t *testing.T) {
		var it Item
		require.NoError(t, json.Unmarshal([]byte(`"gap_tops_1.png"`), &it))
		assert.Equal(t, Item{Filename: "gap_tops_1.png"}, it)
	})

	t.Run("legacy _id is accepted", func(t *testing.T) {
		var it Item
		require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc","filename":"f.png"}`), &it))
		assert.Equal(t, "abc", it.ID)
		assert.Equal(t, "f.png", it.Filename)
	})

	t.Run("id wins over _id", func(t *testing.T) {
		var it Item
		require.NoError(t, json.Unmarshal([]byte(`{"id":"new","_id":"old"}`), &it))
		assert.Equal(t, "new", it.ID)
	})

	t.Run("numeric price", func(t *testing.T) {
		var it Item
		require.NoError(t, json.Unmarshal([]byte(`{"price":19.5}`), &it))
		assert.Equal(t, "19.5", it.Price)
	})

	t.Run("addedAt is parsed", func(t *testing.T) {
		var it Item
		require.NoError(t, json.Unmarshal([]byte(`{"addedAt":"2024-03-01T10:00:00Z"}`), &it))
		assert.True(t, it.AddedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("bad price", func(t *testing.T) {
		var it Item
		assert.Error(t, json.Unmarshal([]byte(`{"price":{}}`), &it))
	})
}

func TestOutfitUnmarshalJSON(t *testing.T) {
	var o Outfit
	body := `{"_id":"o1","tops":["a.png",{"filename":"b.png"}],"date":"2024-03-01T10:00:00Z"}`
	require.NoError(t, json.Unmarshal([]byte(body), &o))

	assert.Equal(t, "o1", o.ID)
	require.Len(t, o.Tops, 2)
	assert.Equal(t, "a.png", o.Tops[0].Filename)
	assert.Equal(t, "b.png", o.Tops[1].Filename)
	assert.False(t, o.Date.IsZero())
}

func TestOutfitUnmarshalJSON_NestedPieces(t *testing.T) {
	view := CrushView{
		Outfit: OutfitPieces{Tops: []Item{{Filename: "gap_tops_1.png"}}, Shoes: []Item{{Filename: "nike_shoes_2.png"}}},
		Date:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(view)
	require.NoError(t, err)

	var o Outfit
	require.NoError(t, json.Unmarshal(data, &o))
	require.Len(t, o.Tops, 1)
	assert.Equal(t, "gap_tops_1.png", o.Tops[0].Filename)
	require.Len(t, o.Shoes, 1)
	assert.Empty(t, o.Bottoms)
	assert.True(t, view.Date.Equal(o.Date))

	t.Run("flat lists win", func(t *testing.T) {
		var o Outfit
		body := `{"tops":["flat.png"],"outfit":{"tops":["nested.png"],"dresses":["d.png"]}}`
		require.NoError(t, json.Unmarshal([]byte(body), &o))
		require.Len(t, o.Tops, 1)
		assert.Equal(t, "flat.png", o.Tops[0].Filename)
		require.Len(t, o.Dresses, 1)
		assert.Equal(t, "d.png", o.Dresses[0].Filename)
	})
}

func TestPriceUnmarshalJSON(t *testing.T) {
	var req struct {
		Price Price `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":19.99}`), &req))
	assert.Equal(t, Price("19.99"), req.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price":"$20"}`), &req))
	assert.Equal(t, Price("$20"), req.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price":true}`), &req))
}

func TestUserClone(t *testing.T) {
	u := NewUser("u1", "a@x.com")
	u.Tops = append(u.Tops, Item{ID: "i1"})
	u.Crushes = append(u.Crushes, Outfit{ID: "c1", Tops: []Item{{ID: "i1"}}})

	c := u.Clone()
	c.Tops[0].Name = "changed"
	c.Crushes[0].Tops[0].Name = "changed"
	c.Bottoms = append(c.Bottoms, Item{ID: "i2"})

	assert.Empty(t, u.Tops[0].Name)
	assert.Empty(t, u.Crushes[0].Tops[0].Name)
	assert.Empty(t, u.Bottoms)
	assert.NotNil(t, c.Dresses)
}

func TestNewUserEncodesEmptyLists(t *testing.T) {
	data, err := json.Marshal(NewUser("u1", "a@x.com"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tops":[]`)
	assert.Contains(t, string(data), `"crushes":[]`)
}

func TestSummarize(t *testing.T) {
	u := NewUser("u1", "a@x.com")
	u.Tops = []Item{{ID: "1"}, {ID: "2"}}
	u.Crushes = []Outfit{{ID: "c"}}

	s := Summarize(u)
	assert.Equal(t, 2, s.Tops)
	assert.Equal(t, 0, s.Bottoms)
	assert.Equal(t, 1, s.Crushes)
	assert.Equal(t, "a@x.com", s.Email)
}

func TestPiecesNeverNil(t *testing.T) {
	p := Outfit{Tops: []Item{{Filename: "a.png"}}}.Pieces()
	assert.Len(t, p.Tops, 1)
	assert.NotNil(t, p.Bottoms)
	assert.NotNil(t, p.Accessories)

	o := FromPieces(p, time.Time{})
	assert.Equal(t, "a.png", o.Tops[0].Filename)
}
