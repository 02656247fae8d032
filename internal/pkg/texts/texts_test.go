package texts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		lang string
		key  string
		args []interface{}
		want string
	}{
		{name: "en", lang: "en", key: Balance, args: []interface{}{5}, want: "Your balance: 5 min."},
		{name: "en-US", lang: "en-US", key: Balance, args: []interface{}{5}, want: "Your balance: 5 min."},
		{name: "ru", lang: "ru", key: Balance, args: []interface{}{5}, want: "Ваш баланс: 5 мин."},
		{name: "fallback", lang: "lt", key: Balance, args: []interface{}{5}, want: "Ваш баланс: 5 мин."},
		{name: "empty lang", lang: "", key: UnsupportedFormat, want: "Неподдерживаемый формат файла."},
		{name: "no key", lang: "en", key: "olia", want: "olia"},
		{name: "two args", lang: "en", key: AudioTooLong, args: []interface{}{10, 12},
			want: "File is too long. Max: 10 min, your file: 12 min."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Get(tt.lang, tt.key, tt.args...))
		})
	}
}

func TestLang(t *testing.T) {
	assert.Equal(t, "en", Lang("EN"))
	assert.Equal(t, "en", Lang("en_GB"))
	assert.Equal(t, "ru", Lang("de"))
	assert.Equal(t, "ru", Lang(""))
}

func TestCatalogsComplete(t *testing.T) {
	for k := range catalogs[DefaultLang] {
		for l, c := range catalogs {
			_, ok := c[k]
			assert.True(t, ok, "no %s in %s", k, l)
		}
	}
	for l, c := range catalogs {
		for k, v := range c {
			assert.False(t, strings.TrimSpace(v) == "", "empty %s in %s", k, l)
		}
	}
}
