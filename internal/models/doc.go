// Package models owns model size selection and the on-disk model artifact
// cache.
//
// Selection maps the user-facing size names (tiny, small, base, medium,
// large) to stable ggml file names; large intentionally shares the medium
// artifact. Store fetches an artifact once from the model host, writing to a
// hidden temporary file and renaming it into place so a partial download is
// never mistaken for a cached model. A cross-process lock keeps concurrent
// runs from downloading the same file twice.
package models
