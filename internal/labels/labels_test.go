package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractValues(t *testing.T) {
	ls := []Label{{Name: "Dependency:SIEM"}, {Name: "Feature:Bi hoo"}, {Name: "Feature:Lens"}}
	assert.Equal(t, []string{"Bi hoo", "Lens"}, ExtractValues(ls, "Feature"))
	assert.Equal(t, []string{}, ExtractValues(ls, "Team"))

	v, ok := ExtractValue(ls, "Feature")
	assert.True(t, ok)
	assert.Equal(t, "Lens", v)

	_, ok = ExtractValue(ls, "Team")
	assert.False(t, ok)

	v, ok = ExtractValue([]Label{{Name: "Feature"}}, "Feature")
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestFindLabel(t *testing.T) {
	ls := []Label{{Name: "bug"}, {Name: "enhancement"}}
	l, ok := FindLabel(ls, "enhancement")
	assert.True(t, ok)
	assert.Equal(t, "enhancement", l.Name)

	_, ok = FindLabel(ls, "enh")
	assert.False(t, ok)
}

func TestExtractIssueNumber(t *testing.T) {
	assert.Equal(t, "75780", ExtractIssueNumber("https://api.github.com/repos/elastic/kibana/issues/75780"))
	assert.Equal(t, "42", ExtractIssueNumber("42"))
}

func TestExtractVersionNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Target: 7.9", "7.9", true},
		{"Target: 7.", "", false},
		{"8.0", "8.0", true},
		{"7.14 - tentative", "7.14", true},
		{"v8.10.2", "8.10", true},
	}
	for _, tt := range tests {
		got, ok := ExtractVersionNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
