// Package catalog holds the static prompt pools offered to drawn players.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"strconv"
	"strings"
)

//go:embed prompts/*.txt
var promptsFS embed.FS

// Category is a prompt type.
type Category string

const (
	Truth Category = "truth"
	Trick Category = "trick"
)

// Categories lists every category in offer order.
var Categories = []Category{Truth, Trick}

// ParseCategory normalizes s and reports whether it names a category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == Truth || c == Trick
}

// Prompt is an immutable catalog entry.
type Prompt struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
}

// Used is a set of consumed prompt ids for one category.
type Used map[string]struct{}

// Has reports whether id was consumed.
func (u Used) Has(id string) bool {
	_, ok := u[id]
	return ok
}

// Add marks id as consumed.
func (u Used) Add(id string) {
	u[id] = struct{}{}
}

// Clear forgets every consumed id.
func (u Used) Clear() {
	clear(u)
}

var (
	ErrEmptyID         = errors.New("prompt id is required")
	ErrInvalidCategory = errors.New("invalid prompt category")
	ErrDuplicateID     = errors.New("duplicate prompt id")
	ErrEmptyContent    = errors.New("prompt content is required")
)

// Catalog is a read-only set of prompt pools. It is safe for concurrent use.
type Catalog struct {
	pools map[Category][]Prompt
	byID  map[string]Prompt
}

// New builds a catalog from prompts. Pools keep the given order.
func New(prompts ...Prompt) (*Catalog, error) {
	c := &Catalog{
		pools: make(map[Category][]Prompt, len(Categories)),
		byID:  make(map[string]Prompt, len(prompts)),
	}
	for _, p := range prompts {
		p.ID = strings.TrimSpace(p.ID)
		p.Content = strings.TrimSpace(p.Content)
		switch {
		case p.ID == "":
			return nil, ErrEmptyID
		case !p.Category.Valid():
			return nil, fmt.Errorf("prompt %s: %w %q", p.ID, ErrInvalidCategory, p.Category)
		case p.Content == "":
			return nil, fmt.Errorf("prompt %s: %w", p.ID, ErrEmptyContent)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("prompt %s: %w", p.ID, ErrDuplicateID)
		}
		c.byID[p.ID] = p
		c.pools[p.Category] = append(c.pools[p.Category], p)
	}
	return c, nil
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	var prompts []Prompt
	for _, cat := range Categories {
		loaded, err := loadPool(cat)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, loaded...)
	}
	return New(prompts...)
}

// loadPool reads the embedded file for cat. Blank lines and # comments are skipped.
func loadPool(cat Category) ([]Prompt, error) {
	name := "prompts/" + string(cat) + ".txt"
	b, err := fs.ReadFile(promptsFS, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var out []Prompt
	for _, line := range strings.Split(string(b), "\n") {
		content := strings.TrimSpace(line)
		if content == "" || strings.HasPrefix(content, "#") {
			continue
		}
		out = append(out, Prompt{
			ID:       string(cat) + "-" + strconv.Itoa(len(out)+1),
			Content:  content,
			Category: cat,
		})
	}
	return out, nil
}

// Next picks uniformly among prompts of cat whose id is not in used.
// It reports false when every prompt of the category has been used or the
// pool is empty. Next never mutates used.
func (c *Catalog) Next(cat Category, used Used, rng *rand.Rand) (Prompt, bool) {
	pool := c.pools[cat]
	available := make([]Prompt, 0, len(pool))
	for _, p := range pool {
		if !used.Has(p.ID) {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return Prompt{}, false
	}
	return available[rng.Intn(len(available))], true
}

// Remaining returns the pool size minus the used count, floored at zero.
func (c *Catalog) Remaining(cat Category, used Used) int {
	n := len(c.pools[cat]) - len(used)
	if n < 0 {
		return 0
	}
	return n
}

// Size returns the number of prompts configured for cat.
func (c *Catalog) Size(cat Category) int {
	return len(c.pools[cat])
}

// Get looks a prompt up by id.
func (c *Catalog) Get(id string) (Prompt, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Prompts returns a copy of the pool for cat.
func (c *Catalog) Prompts(cat Category) []Prompt {
	return append([]Prompt(nil), c.pools[cat]...)
}

// All returns every prompt, grouped by category in offer order.
func (c *Catalog) All() []Prompt {
	out := make([]Prompt, 0, len(c.byID))
	for _, cat := range Categories {
		out = append(out, c.pools[cat]...)
	}
	return out
}
