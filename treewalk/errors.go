package treewalk

import (
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/cockroachdb/errors"
)

// ErrNotATreePage is returned when a page fails validation or a tuple cannot be decoded.
var ErrNotATreePage = pagecodec.ErrNotATreePage

// ErrWrongColumnIndex is returned when a scan asks for an attribute the tree does not have.
var ErrWrongColumnIndex = errors.New("wrong column index")
