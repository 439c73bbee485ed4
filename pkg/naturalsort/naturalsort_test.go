package naturalsort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOrdersDigitRunsNumerically(t *testing.T) {
	assert.Negative(t, Compare("page2.jpg", "page10.jpg"))
	assert.Negative(t, Compare("page10.jpg", "page10a.jpg"))
	assert.Negative(t, Compare("ch1.cbz", "ch2.cbz"))
	assert.Negative(t, Compare("ch2.cbz", "ch10.cbz"))
}

func TestCompareIsCaseInsensitive(t *testing.T) {
	assert.Zero(t, Compare("Chapter 1", "chapter 1"))
	assert.Negative(t, Compare("Alpha", "beta"))
}

func TestCompareLeadingZeros(t *testing.T) {
	assert.Zero(t, Compare("007", "7"))
	assert.Negative(t, Compare("007", "8"))
}

func TestCompareAntisymmetry(t *testing.T) {
	pairs := [][2]string{
		{"page2.jpg", "page10.jpg"},
		{"a", "b"},
		{"vol1ch2", "vol1ch10"},
		{"", "x"},
		{"10", "10a"},
	}
	for _, p := range pairs {
		assert.Equal(t, -Compare(p[0], p[1]), Compare(p[1], p[0]), "pair %v", p)
	}
}

func TestCompareHugeNumbersSaturate(t *testing.T) {
	// Runs beyond the uint64 range must not panic and stay ordered against
	// smaller numbers.
	assert.Positive(t, Compare("99999999999999999999999", "1"))
}

func TestStrings(t *testing.T) {
	ss := []string{"ch10.cbz", "ch1.cbz", "ch2.cbz"}
	Strings(ss)
	assert.Equal(t, []string{"ch1.cbz", "ch2.cbz", "ch10.cbz"}, ss)
}
