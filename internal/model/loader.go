package model

// Loader is the capability a model-file reader must satisfy: given a
// filename, produce a fully-initialized Model. Any type satisfying this
// signature can stand in for the production storage loader, which is
// exactly how tests substitute synthetic in-memory models without
// touching real storage.
type Loader interface {
	Load(filename string) (*Model, error)
}
