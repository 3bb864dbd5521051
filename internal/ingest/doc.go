// Package ingest stores the result of an image analysis as an Image with
// its Items and the Prompt that produced them.
package ingest
