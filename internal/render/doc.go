// Package render drives the page-rendering surface through one managed
// browser-automation session per export job and produces a still image per
// required frame instant. Session reuse across frames is a deliberate
// performance requirement; launching a browser per frame is not acceptable.
package render
