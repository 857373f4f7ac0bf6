package captions

import (
	"fmt"
	"os"
	"path/filepath"
)

// BaseName returns the shared transcript filename stem for an episode,
// without language or extension: "<drama>_ep<N>".
func BaseName(drama string, ep int) string {
	return fmt.Sprintf("%s_ep%d", drama, ep)
}

// WriteTrackFiles writes a track's two renderings under dir/<drama>/:
// "<drama>_ep<N>_<Lang>_T.txt" with timestamps and "<drama>_ep<N>_<Lang>.txt"
// flattened. It returns the paths written.
func WriteTrackFiles(dir, drama string, ep int, track *Track) ([]string, error) {
	outDir := filepath.Join(dir, drama)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	stem := filepath.Join(outDir, BaseName(drama, ep)+"_"+track.Language)

	timestamped := stem + "_T.txt"
	if err := os.WriteFile(timestamped, []byte(track.Timestamped()), 0o644); err != nil {
		return nil, fmt.Errorf("write transcript: %w", err)
	}
	flattened := stem + ".txt"
	if err := os.WriteFile(flattened, []byte(track.Flattened()), 0o644); err != nil {
		return nil, fmt.Errorf("write transcript: %w", err)
	}
	return []string{timestamped, flattened}, nil
}

// LocateFiles returns the episode's transcript files that exist on disk, in
// upload order: English flattened, local timestamped, local flattened.
func LocateFiles(dir, drama string, ep int, localLang string) []string {
	stem := filepath.Join(dir, drama, BaseName(drama, ep))
	candidates := []string{
		stem + "_English.txt",
		stem + "_" + localLang + "_T.txt",
		stem + "_" + localLang + ".txt",
	}
	var found []string
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			found = append(found, p)
		}
	}
	return found
}
