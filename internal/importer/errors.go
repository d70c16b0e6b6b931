package importer

import "errors"

// Sentinel errors for the import pipeline.
var (
	ErrNothingToDo = errors.New("no source and no seed requested")
	ErrFeedStatus  = errors.New("games feed returned an error status")
	ErrDecodeFeed  = errors.New("games feed could not be decoded")
)
