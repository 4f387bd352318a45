package names

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHan(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"张三", true},
		{"欧阳娜娜", true},
		{" 李四 ", true},
		{"John", false},
		{"John Smith", false},
		{"张3", false},
		{"张 三", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHan(tt.name), tt.name)
	}
}

func TestPinyin(t *testing.T) {
	got, err := Pinyin("张三")
	require.NoError(t, err)
	assert.Equal(t, "zhangsan", got)

	again, err := Pinyin("张三")
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = Pinyin("John")
	assert.True(t, errors.Is(err, ErrUnsupportedScript))
}

func TestSurnameLengthBoundary(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"张", "张"},
		{"张三", "张"},
		{"欧阳锋", "欧"},
		{"欧阳娜娜", "欧阳"},
		{"司马相如然", "司马"},
	}

	for _, tt := range tests {
		got, err := Surname(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestSurnameRejectsNonHan(t *testing.T) {
	_, err := Surname("John Smith")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedScript))
}

func TestLoginHandle(t *testing.T) {
	assert.Equal(t, "zhangsan", LoginHandle("张三"))
	assert.Equal(t, "John Smith", LoginHandle(" John Smith "))
}

func TestPinyinFailsOnCharacterWithoutReading(t *testing.T) {
	lookup := readings
	t.Cleanup(func() { readings = lookup })
	readings = func(r rune) []string {
		if r == '三' {
			return nil
		}
		return lookup(r)
	}

	got, err := Pinyin("张三")
	assert.True(t, errors.Is(err, ErrUnsupportedScript))
	assert.Empty(t, got)
	assert.Equal(t, "张三", LoginHandle("张三"))
}
