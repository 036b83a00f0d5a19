package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty); bit n sets dot n+1.
const brailleBase = '⠀'

// brailleDots maps [row][col] to the bit of that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// normalizeValue converts a value to 0-1 range given min/max bounds.
func normalizeValue(val, minVal, maxVal float64) float64 {
	if maxVal > minVal {
		return (val - minVal) / (maxVal - minVal)
	}
	return 0
}

// clampInt clamps an integer to [0, maxVal].
func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// brailleGrid plots data into a width x height braille grid scaled to
// [lo, hi]. Each character holds two samples; short series are
// right-aligned so the newest sample is always at the right edge.
func brailleGrid(data []float64, width, height int, lo, hi float64) [][]rune {
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	targetPoints := width * 2
	if len(data) > targetPoints {
		data = resampleData(data, targetPoints)
	}
	offset := targetPoints - len(data)
	totalDots := height * 4

	for i, val := range data {
		n := normalizeValue(val, lo, hi)
		dotHeight := clampInt(int(n*float64(totalDots)+0.5), totalDots)
		// Keep non-zero values visible.
		if dotHeight == 0 && val > lo {
			dotHeight = 1
		}

		charCol := (i + offset) / 2
		subCol := (i + offset) % 2
		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][charCol] |= rune(1) << brailleDots[subRow][subCol]
		}
	}
	return grid
}

// RenderBrailleGraph renders data as a braille area chart in one color.
func RenderBrailleGraph(data []float64, width, height int, lo, hi float64, color lipgloss.Color) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	grid := brailleGrid(data, width, height, lo, hi)
	style := lipgloss.NewStyle().Foreground(color)

	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = style.Render(string(row))
	}
	return strings.Join(lines, "\n")
}

// resampleData shrinks data to targetSize, keeping the max of each bucket
// so spikes survive.
func resampleData(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) <= targetSize {
		return data
	}

	result := make([]float64, targetSize)
	bucket := float64(len(data)) / float64(targetSize)
	for i := 0; i < targetSize; i++ {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			start = end - 1
		}
		maxVal := data[start]
		for _, v := range data[start+1 : end] {
			if v > maxVal {
				maxVal = v
			}
		}
		result[i] = maxVal
	}
	return result
}
