package catalog

import (
	"log/slog"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

// ErrUnsupportedOnThisStoreVersion is not fatal: callers print UnsupportedPlaceholder instead of a report.
var ErrUnsupportedOnThisStoreVersion = errors.New("function is not working on this store version")

const UnsupportedPlaceholder = "???"

// Feature is an inspection function that needs a minimum store format version.
type Feature struct {
	Name       string
	MinVersion uint16
}

var (
	FeatureGistStat    = Feature{Name: "gist_stat", MinVersion: 1}
	FeatureGistTree    = Feature{Name: "gist_tree", MinVersion: 1}
	FeatureGistPrint   = Feature{Name: "gist_print", MinVersion: 1}
	FeatureGinStat     = Feature{Name: "gin_stat", MinVersion: 1}
	FeatureGinStatPage = Feature{Name: "gin_statpage", MinVersion: 2}
	FeatureSpgistStat  = Feature{Name: "spgist_stat", MinVersion: 2}
	FeatureSpgistPrint = Feature{Name: "spgist_print", MinVersion: 2}
)

// Require reports whether a tree's format supports feature.
func Require(metadata *pagecodec.MetaData, feature Feature) error {

	if metadata.FormatVersion < feature.MinVersion {
		return errors.Wrapf(ErrUnsupportedOnThisStoreVersion, "%s needs format %d, %s has %d", feature.Name, feature.MinVersion, metadata.Name, metadata.FormatVersion)
	}
	return nil
}

// Placeholder turns an unsupported-version error into the placeholder report.
// Any other error is returned unchanged.
func Placeholder(err error) (string, error) {

	if errors.Is(err, ErrUnsupportedOnThisStoreVersion) {
		slog.Warn(err.Error(), "function", "Placeholder", "at", "Catalog")
		return UnsupportedPlaceholder, nil
	}
	return "", err
}
