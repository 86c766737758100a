// pattern: Functional Core

package tui

// Region defines a rectangular area within the terminal.
type Region struct {
	X      int // Left position (0-indexed)
	Y      int // Top position (0-indexed)
	Width  int // Width in cells
	Height int // Height in lines
}

// Layout holds computed regions for all UI components.
type Layout struct {
	Header    Region // App title and subtitle
	Tree      Region // Project tree (left side, 50% when detail open, 100% otherwise)
	Detail    Region // Detail panel (right side when open)
	Logs      Region // Log panel when open
	Prompt    Region // Input prompt line when a prompt is active
	StatusBar Region // Status bar (1 line)
	Separator Region // Separator between content and logs (1 line when logs open)
}

// Fixed heights for chrome elements
const (
	headerHeight    = 2 // Title + subtitle
	statusBarHeight = 1
	marginHeight    = 1
	separatorHeight = 1
	promptHeight    = 1
)

// ComputeLayout calculates regions based on terminal dimensions.
// When logPanelOpen is true, the content area splits 50/50 vertically.
// When detailPanelOpen is true, the content area splits 50/50 horizontally.
func ComputeLayout(width, height int, logPanelOpen, detailPanelOpen, promptOpen bool) Layout {
	fixedHeight := headerHeight + statusBarHeight + marginHeight
	if promptOpen {
		fixedHeight += promptHeight
	}
	availableHeight := height - fixedHeight

	// Ensure minimum usable height
	if availableHeight < 4 {
		availableHeight = 4
	}

	var contentHeight, logsHeight int
	if logPanelOpen {
		availableHeight -= separatorHeight
		contentHeight = availableHeight / 2
		logsHeight = availableHeight - contentHeight
	} else {
		contentHeight = availableHeight
	}

	y := 0

	header := Region{X: 0, Y: y, Width: width, Height: headerHeight}
	y += headerHeight

	var tree, detail Region
	if detailPanelOpen {
		treeWidth := width / 2
		tree = Region{X: 0, Y: y, Width: treeWidth, Height: contentHeight}
		detail = Region{X: treeWidth, Y: y, Width: width - treeWidth, Height: contentHeight}
	} else {
		tree = Region{X: 0, Y: y, Width: width, Height: contentHeight}
		detail = Region{X: 0, Y: y, Width: 0, Height: 0}
	}
	y += contentHeight

	var separator, logs Region
	if logPanelOpen {
		separator = Region{X: 0, Y: y, Width: width, Height: separatorHeight}
		y += separatorHeight

		logs = Region{X: 0, Y: y, Width: width, Height: logsHeight}
		y += logsHeight
	}

	var prompt Region
	if promptOpen {
		prompt = Region{X: 0, Y: y, Width: width, Height: promptHeight}
		y += promptHeight
	}

	statusBar := Region{X: 0, Y: y, Width: width, Height: statusBarHeight}

	return Layout{
		Header:    header,
		Tree:      tree,
		Detail:    detail,
		Logs:      logs,
		Prompt:    prompt,
		StatusBar: statusBar,
		Separator: separator,
	}
}

// TreeBodyHeight returns the number of tree rows visible below the panel header.
func (l Layout) TreeBodyHeight() int {
	h := l.Tree.Height - 1
	if h < 1 {
		h = 1
	}
	return h
}
