package common

import "errors"

// ErrConfiguration marks invalid resource or render-target configuration, such as geometry whose
// index count does not match its vertex data or a target push that mixes buffer sizes.
// A configuration error is fatal to the frame it occurs in.
var ErrConfiguration = errors.New("configuration error")
