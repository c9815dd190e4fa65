// Package catalog loads the practice catalog: a YAML file listing guided
// practices and their steps. It stands in for the content store that feeds
// the player and the step feed endpoint.
package catalog
