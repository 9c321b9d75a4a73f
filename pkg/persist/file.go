package persist

import (
	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

// SaveFile writes sc to path as a JSON document.
func SaveFile(sc *scene.Scene, path string) error {
	wm, err := Save(sc)
	if err != nil {
		return err
	}
	if err := document.WriteFile(path, wm); err != nil {
		return err
	}
	st := document.Count(wm)
	sc.Logger().Info("saved", "path", path, "systems", st.Systems, "interactions", st.Interactions)
	return nil
}

// LoadFile reads and loads the document at path.
func LoadFile(path string, opts ...scene.Option) (*Result, error) {
	wm, err := document.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(wm, opts...)
}
