// Package storyboard loads timeline declarations from YAML files. A
// storyboard is validated against an embedded CUE schema before any Story
// is constructed, so declaration mistakes surface as configuration errors
// with field context instead of mid-render surprises.
package storyboard
