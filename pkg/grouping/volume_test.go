package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVolume(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"1", 1},
		{" 12 ", 12},
		{"vol. 3", 3},
		{"第３巻", 3},
		{"第十二巻", 12},
		{"二十", 20},
		{"百五", 105},
		{"(4)", 4},
		{"", Unparsed},
		{"上", Unparsed},
		{"special edition", Unparsed},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVolume(tt.label))
		})
	}
}

func TestBaseTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Foo 1", "Foo"},
		{"ONE PIECE 107", "ONE PIECE"},
		{"ドラゴンボール 第3巻", "ドラゴンボール"},
		{"ドラゴンボール第十巻", "ドラゴンボール"},
		{"Naruto (12)", "Naruto"},
		{"ナルト（１２）", "ナルト"},
		{"Bleach vol. 5", "Bleach"},
		{"Bleach Vol 5", "Bleach"},
		{"Bleach VOLUME 5", "Bleach"},
		{"こち亀 巻3", "こち亀"},
		{"こち亀 その2", "こち亀"},
		{"AKIRA 完全版 1", "AKIRA"},
		{"ドラゴンボール 愛蔵版", "ドラゴンボール"},
		{"孤独のグルメ メガ盛りmenu", "孤独のグルメ"},
		{"Revolver", "Revolver"},
		{"20世紀少年", "20世紀少年"},
		{"1", "1"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseTitle(tt.title))
		})
	}
}
