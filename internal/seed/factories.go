// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"recipebox/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds domain entities with fake content. It does not persist anything.
type Factory struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewFactory creates a Factory. The same seed yields the same entities.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: time.Now}
}

// BuildUser returns a user with a unique, valid username derived from n.
func (f *Factory) BuildUser(n int, digest string) *models.User {
	base := usernameSafe(f.faker.FirstName())
	if len(base) < 3 {
		base = "cook"
	}
	if len(base) > 20 {
		base = base[:20]
	}
	return &models.User{
		Username: fmt.Sprintf("%s_%d", base, n),
		Password: digest,
	}
}

var mealBuilders = []func(*gofakeit.Faker) string{
	(*gofakeit.Faker).Breakfast,
	(*gofakeit.Faker).Lunch,
	(*gofakeit.Faker).Dinner,
	(*gofakeit.Faker).Snack,
	(*gofakeit.Faker).Dessert,
}

// BuildRecipe returns a recipe authored by user with a creation time within
// maxDays of now, tagged with up to three of tags.
func (f *Factory) BuildRecipe(user *models.User, tags []string, maxDays int) *models.Recipe {
	meal := mealBuilders[f.faker.Number(0, len(mealBuilders)-1)](f.faker)

	ingredients := make([]string, 0, 6)
	for i := f.faker.Number(2, 6); i > 0; i-- {
		if f.faker.Bool() {
			ingredients = append(ingredients, f.faker.Fruit())
		} else {
			ingredients = append(ingredients, f.faker.Vegetable())
		}
	}

	if maxDays <= 0 {
		maxDays = 90
	}
	created := f.now().
		Add(-time.Duration(f.faker.Number(0, maxDays-1)) * 24 * time.Hour).
		Add(-time.Duration(f.faker.Number(0, 24*60-1)) * time.Minute).
		UTC().Truncate(time.Microsecond)

	return &models.Recipe{
		Title:       meal,
		Contents:    f.faker.Paragraph(2, 4, 10, "\n\n"),
		Ingredients: ingredients,
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()),
		Tags:        f.pickTags(tags, 3),
		UserID:      user.ID,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// PickLikers returns up to max distinct users drawn from users.
func (f *Factory) PickLikers(users []*models.User, max int) []*models.User {
	if max <= 0 || len(users) == 0 {
		return nil
	}
	idx := make([]int, len(users))
	for i := range idx {
		idx[i] = i
	}
	f.faker.ShuffleInts(idx)

	n := f.faker.Number(0, min(max, len(users)))
	out := make([]*models.User, 0, n)
	for _, i := range idx[:n] {
		out = append(out, users[i])
	}
	return out
}

func (f *Factory) pickTags(tags []string, max int) []string {
	pool := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; !dup {
			seen[tag] = struct{}{}
			pool = append(pool, tag)
		}
	}
	if len(pool) == 0 {
		return []string{}
	}
	f.faker.ShuffleStrings(pool)
	return pool[:f.faker.Number(0, min(max, len(pool)))]
}

func usernameSafe(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
