package slug

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Attack on Titan Final Season Review", "attack-on-titan-final-season-review"},
		{"  Spaced   Out  ", "spaced-out"},
		{"Re:Zero - Starting Life", "rezero-starting-life"},
		{"Pokémon: Mewtwo Strikes Back!", "pokemon-mewtwo-strikes-back"},
		{"Café ñoño", "cafe-nono"},
		{"snake_case_title", "snake_case_title"},
		{"__leading and trailing__", "leading-and-trailing"},
		{"---", ""},
		{"", ""},
		{"   ", ""},
		{"進撃の巨人", ""},
		{"100% Orange Juice!!", "100-orange-juice"},
		{"multi\t\nline", "multi-line"},
		{"Already-a-slug", "already-a-slug"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	for _, in := range []string{"Demon Slayer: Kimetsu no Yaiba", "Fullmetal Alchemist: Brotherhood", "x"} {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once))
	}
}

func TestSlugify_CapsLengthOnHyphenBoundary(t *testing.T) {
	title := strings.Repeat("word ", 60)
	got := Slugify(title)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, strings.HasSuffix(got, "word"))

	long := strings.Repeat("a", 250)
	assert.Len(t, Slugify(long), MaxLength)
}

func TestGenerate_Fallback(t *testing.T) {
	assert.Equal(t, "post", Generate("", "post"))
	assert.Equal(t, "tag", Generate("   ", "tag"))
	assert.Equal(t, "category", Generate("ワンピース", "category"))
	assert.Equal(t, "one-piece", Generate("One Piece", "post"))
}

func TestUnique(t *testing.T) {
	t.Run("free base is kept", func(t *testing.T) {
		assert.Equal(t, "naruto", UniqueAmong("naruto", nil))
	})

	t.Run("first free suffix wins", func(t *testing.T) {
		assert.Equal(t, "naruto-1", UniqueAmong("naruto", []string{"naruto"}))
		assert.Equal(t, "naruto-3", UniqueAmong("naruto", []string{"naruto", "naruto-1", "naruto-2"}))
	})

	t.Run("gaps are filled", func(t *testing.T) {
		assert.Equal(t, "naruto-1", UniqueAmong("naruto", []string{"naruto", "naruto-2"}))
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		existing := []string{"post", "post-1"}
		assert.Equal(t, UniqueAmong("post", existing), UniqueAmong("post", existing))
	})

	t.Run("n titles produce n distinct slugs", func(t *testing.T) {
		var used []string
		for i := 0; i < 20; i++ {
			used = append(used, UniqueAmong(Slugify("Same Title"), used))
		}
		seen := map[string]bool{}
		for _, s := range used {
			assert.False(t, seen[s], "duplicate slug %s", s)
			seen[s] = true
		}
		assert.Equal(t, "same-title", used[0])
		assert.Equal(t, fmt.Sprintf("same-title-%d", 19), used[19])
	})

	t.Run("suffix respects max length", func(t *testing.T) {
		base := strings.Repeat("a", MaxLength)
		got := UniqueAmong(base, []string{base})
		assert.LessOrEqual(t, len(got), MaxLength)
		assert.True(t, strings.HasSuffix(got, "-1"))
	})
}
