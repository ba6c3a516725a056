// Package videogen talks to the local video generation services. Each engine
// (text-to-video, image-to-video, character-adapter) exposes the same HTTP
// job API: submit a request, poll job status, collect the rendered clip path.
package videogen
