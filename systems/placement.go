package systems

import "github.com/pthm-cable/photovore/components"

// GridSlot returns the position for a spawn slot. Slots fill the grid
// row-major, so placement is a pure function of the slot index and the
// repopulated world looks the same under the same config.
func GridSlot(index, width int, spacing float64) components.Position {
	col := index % width
	row := index / width
	return components.Position{
		Col: col,
		Row: row,
		X:   float64(col) * spacing,
		Y:   float64(row) * spacing,
	}
}
