package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotal(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		addOns  []string
		fans    int
		want    int
	}{
		{"base only", 150, nil, 0, 150},
		{"windows", 150, []string{AddOnWindows}, 0, 160},
		{"stove", 150, []string{AddOnStove}, 0, 165},
		{"both flat add-ons", 150, []string{AddOnWindows, AddOnStove}, 0, 175},
		{"fans only", 150, nil, 2, 160},
		{"windows plus two fans", 150, []string{AddOnWindows}, 2, 170},
		{"duplicate ids counted once", 150, []string{AddOnWindows, AddOnWindows}, 0, 160},
		{"unknown id ignored", 150, []string{"sauna"}, 0, 150},
		{"negative fan count charges nothing", 150, nil, -3, 150},
		{"ceiling_fan id carries no flat price", 150, []string{AddOnCeilingFan}, 0, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Total(tt.base, tt.addOns, tt.fans))
		})
	}
}

func TestCatalogOrder(t *testing.T) {
	catalog := Catalog()
	assert.Len(t, catalog, 3)
	assert.Equal(t, AddOnWindows, catalog[0].ID)
	assert.Equal(t, 10, catalog[0].Price)
	assert.Equal(t, AddOnStove, catalog[1].ID)
	assert.Equal(t, 15, catalog[1].Price)
	assert.Equal(t, AddOnCeilingFan, catalog[2].ID)
}
