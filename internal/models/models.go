package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Garment categories
const (
	CategoryTops        = "tops"
	CategoryBottoms     = "bottoms"
	CategoryShoes       = "shoes"
	CategoryAccessories = "accessories"
	CategoryDresses     = "dresses"
)

// Outfit collections
const (
	CollectionOutfits = "outfits"
	CollectionCrushes = "crushes"
)

// Categories lists the garment categories in their canonical order.
var Categories = []string{
	CategoryTops,
	CategoryBottoms,
	CategoryShoes,
	CategoryAccessories,
	CategoryDresses,
}

// IsCategory reports whether name is one of the five garment categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// IsOutfitCollection reports whether name is outfits or crushes.
func IsOutfitCollection(name string) bool {
	return name == CollectionOutfits || name == CollectionCrushes
}

// User is the aggregate persisted by every store: one document per user with
// the garment and outfit collections embedded.
type User struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	Tops        []Item    `json:"tops" bson:"tops"`
	Bottoms     []Item    `json:"bottoms" bson:"bottoms"`
	Shoes       []Item    `json:"shoes" bson:"shoes"`
	Accessories []Item    `json:"accessories" bson:"accessories"`
	Dresses     []Item    `json:"dresses" bson:"dresses"`
	Outfits     []Outfit  `json:"outfits" bson:"outfits"`
	Crushes     []Outfit  `json:"crushes" bson:"crushes"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// NewUser returns a user with every collection initialized.
func NewUser(id, email string) *User {
	now := time.Now()
	u := &User{ID: id, Email: email, CreatedAt: now, UpdatedAt: now}
	u.Normalize()
	return u
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (u *User) Normalize() {
	for _, c := range Categories {
		if p := u.Category(c); *p == nil {
			*p = []Item{}
		}
	}
	if u.Outfits == nil {
		u.Outfits = []Outfit{}
	}
	if u.Crushes == nil {
		u.Crushes = []Outfit{}
	}
}

// Category returns a pointer to the item list for a garment category, or nil
// for anything else.
func (u *User) Category(name string) *[]Item {
	switch name {
	case CategoryTops:
		return &u.Tops
	case CategoryBottoms:
		return &u.Bottoms
	case CategoryShoes:
		return &u.Shoes
	case CategoryAccessories:
		return &u.Accessories
	case CategoryDresses:
		return &u.Dresses
	}
	return nil
}

// Collection returns a pointer to the outfits or crushes list, or nil.
func (u *User) Collection(name string) *[]Outfit {
	switch name {
	case CollectionOutfits:
		return &u.Outfits
	case CollectionCrushes:
		return &u.Crushes
	}
	return nil
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	c := *u
	for _, name := range Categories {
		src := *u.Category(name)
		*c.Category(name) = append([]Item(nil), src...)
	}
	c.Outfits = cloneOutfits(u.Outfits)
	c.Crushes = cloneOutfits(u.Crushes)
	c.Normalize()
	return &c
}

func cloneOutfits(src []Outfit) []Outfit {
	out := make([]Outfit, len(src))
	for i, o := range src {
		out[i] = o.Clone()
	}
	return out
}

// Item is one processed garment image.
type Item struct {
	ID       string    `json:"id" bson:"id"`
	Filename string    `json:"filename" bson:"filename"`
	Name     string    `json:"name" bson:"name"`
	Brand    string    `json:"brand" bson:"brand"`
	Price    string    `json:"price" bson:"price"`
	AddedAt  time.Time `json:"addedAt" bson:"addedAt"`
}

// UnmarshalJSON accepts either an item object or a bare string naming the
// item's file, which is how outfits may reference wardrobe entries. Objects
// may use "_id" in place of "id" and a numeric price.
func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		*i = Item{Filename: ref}
		return nil
	}

	var raw struct {
		ID       string          `json:"id"`
		LegacyID string          `json:"_id"`
		Filename string          `json:"filename"`
		Name     string          `json:"name"`
		Brand    string          `json:"brand"`
		Price    json.RawMessage `json:"price"`
		AddedAt  *time.Time      `json:"addedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	price, err := decodePrice(raw.Price)
	if err != nil {
		return err
	}

	*i = Item{
		ID:       raw.ID,
		Filename: raw.Filename,
		Name:     raw.Name,
		Brand:    raw.Brand,
		Price:    price,
	}
	if i.ID == "" {
		i.ID = raw.LegacyID
	}
	if raw.AddedAt != nil {
		i.AddedAt = *raw.AddedAt
	}
	return nil
}

func decodePrice(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("price must be a string or a number")
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Price is a price as clients send it, either a string or a bare number.
type Price string

// UnmarshalJSON implements json.Unmarshaler
func (p *Price) UnmarshalJSON(data []byte) error {
	s, err := decodePrice(data)
	if err != nil {
		return err
	}
	*p = Price(s)
	return nil
}

// Outfit is a saved composition. Items are embedded by value so later
// deletions from the wardrobe do not touch it.
type Outfit struct {
	ID          string    `json:"id" bson:"id"`
	Tops        []Item    `json:"tops" bson:"tops"`
	Bottoms     []Item    `json:"bottoms" bson:"bottoms"`
	Dresses     []Item    `json:"dresses" bson:"dresses"`
	Shoes       []Item    `json:"shoes" bson:"shoes"`
	Accessories []Item    `json:"accessories" bson:"accessories"`
	Date        time.Time `json:"date" bson:"date"`
}

// UnmarshalJSON accepts "_id" as an alias of "id", and the read shape
// served by the crushes listing, where the pieces sit under "outfit".
// Flat lists win over nested ones.
func (o *Outfit) UnmarshalJSON(data []byte) error {
	type plain Outfit
	var raw struct {
		plain
		LegacyID string        `json:"_id"`
		Nested   *OutfitPieces `json:"outfit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Outfit(raw.plain)
	if o.ID == "" {
		o.ID = raw.LegacyID
	}
	if n := raw.Nested; n != nil {
		lift(&o.Tops, n.Tops)
		lift(&o.Bottoms, n.Bottoms)
		lift(&o.Dresses, n.Dresses)
		lift(&o.Shoes, n.Shoes)
		lift(&o.Accessories, n.Accessories)
	}
	return nil
}

func lift(dst *[]Item, nested []Item) {
	if len(*dst) == 0 && len(nested) > 0 {
		*dst = nested
	}
}

// Pieces returns only the garment lists of the outfit, with nil lists
// replaced by empty ones.
func (o Outfit) Pieces() OutfitPieces {
	return OutfitPieces{
		Tops:        orEmpty(o.Tops),
		Bottoms:     orEmpty(o.Bottoms),
		Dresses:     orEmpty(o.Dresses),
		Shoes:       orEmpty(o.Shoes),
		Accessories: orEmpty(o.Accessories),
	}
}

// FromPieces builds an outfit holding the given garment lists.
func FromPieces(p OutfitPieces, date time.Time) Outfit {
	return Outfit{
		Tops:        p.Tops,
		Bottoms:     p.Bottoms,
		Dresses:     p.Dresses,
		Shoes:       p.Shoes,
		Accessories: p.Accessories,
		Date:        date,
	}
}

func orEmpty(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}

// Clone returns a deep copy of o.
func (o Outfit) Clone() Outfit {
	o.Tops = append([]Item(nil), o.Tops...)
	o.Bottoms = append([]Item(nil), o.Bottoms...)
	o.Dresses = append([]Item(nil), o.Dresses...)
	o.Shoes = append([]Item(nil), o.Shoes...)
	o.Accessories = append([]Item(nil), o.Accessories...)
	return o
}

// OutfitPieces is the garment part of an outfit as clients submit and read it.
type OutfitPieces struct {
	Tops        []Item `json:"tops"`
	Bottoms     []Item `json:"bottoms"`
	Dresses     []Item `json:"dresses"`
	Shoes       []Item `json:"shoes"`
	Accessories []Item `json:"accessories"`
}

// CrushView is the read shape of a crush: the pieces nested under "outfit".
type CrushView struct {
	Outfit OutfitPieces `json:"outfit"`
	Date   time.Time    `json:"date"`
}

// Items groups the five garment lists for the list-items response.
type Items struct {
	Tops        []Item `json:"tops"`
	Bottoms     []Item `json:"bottoms"`
	Shoes       []Item `json:"shoes"`
	Accessories []Item `json:"accessories"`
	Dresses     []Item `json:"dresses"`
}

// SyncSummary reports post-merge collection sizes.
type SyncSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Tops        int    `json:"tops"`
	Bottoms     int    `json:"bottoms"`
	Shoes       int    `json:"shoes"`
	Accessories int    `json:"accessories"`
	Dresses     int    `json:"dresses"`
	Outfits     int    `json:"outfits"`
	Crushes     int    `json:"crushes"`
}

// Summarize builds the collection counts of u.
func Summarize(u *User) SyncSummary {
	return SyncSummary{
		ID:          u.ID,
		Email:       u.Email,
		Tops:        len(u.Tops),
		Bottoms:     len(u.Bottoms),
		Shoes:       len(u.Shoes),
		Accessories: len(u.Accessories),
		Dresses:     len(u.Dresses),
		Outfits:     len(u.Outfits),
		Crushes:     len(u.Crushes),
	}
}
