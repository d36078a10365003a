package injection

import (
	"io/fs"
	"os"
	"path/filepath"
)

// namedVariants maps a fake chroma id to the exact filename (without
// extension) its form archive is shipped under. These are the reserved
// per-champion fake ids used for "form" skins that have no real chroma
// entry of their own: Elementalist Lux's nine elemental forms, Sahn
// Uzal Mordekaiser's two forms, Spirit Blossom Morgana's one alternate
// form, Radiant Sett's two forms and KDA Seraphine's two forms. This
// is data, not logic, per SPEC_FULL.md's decision on spec.md §9's open
// question — adding a champion's fake-id forms is a literal addition
// here, nothing else.
var namedVariants = map[int]NamedRequest{
	99991: {FilenamePatterns: []string{"Lux Elementalist Air"}},
	99992: {FilenamePatterns: []string{"Lux Elementalist Dark"}},
	99993: {FilenamePatterns: []string{"Lux Elementalist Ice"}},
	99994: {FilenamePatterns: []string{"Lux Elementalist Magma"}},
	99995: {FilenamePatterns: []string{"Lux Elementalist Mystic"}},
	99996: {FilenamePatterns: []string{"Lux Elementalist Nature"}},
	99997: {FilenamePatterns: []string{"Lux Elementalist Storm"}},
	99998: {FilenamePatterns: []string{"Lux Elementalist Water"}},
	99999: {FilenamePatterns: []string{"Lux Elementalist Fire"}},

	82998: {FilenamePatterns: []string{"Sahn Uzal Mordekaiser Form 1"}},
	82999: {FilenamePatterns: []string{"Sahn Uzal Mordekaiser Form 2"}},

	25999: {FilenamePatterns: []string{"Spirit Blossom Morgana Form 1"}},

	875998: {FilenamePatterns: []string{"Radiant Sett Form 2"}},
	875999: {FilenamePatterns: []string{"Radiant Sett Form 3"}},

	147002: {FilenamePatterns: []string{"KDA Seraphine Form 1"}},
	147003: {FilenamePatterns: []string{"KDA Seraphine Form 2"}},
}

func namedVariantFor(chromaID int) (NamedRequest, bool) {
	v, ok := namedVariants[chromaID]
	return v, ok
}

// Resolve implements spec.md §4.2's resolution rules in order. ext is
// the original extension the archive was found under ("zip" or
// "fantome"), returned so callers can log it without the resolver
// branching behavior on it, per SPEC_FULL.md's decision on extension
// preservation.
func Resolve(ix *ArchiveIndex, root string, req Request) (path string, ext string, err error) {
	switch r := req.(type) {
	case SkinRequest:
		return resolveSkin(ix, root, r)
	case ChromaRequest:
		return resolveChroma(ix, root, r.ChromaID)
	case NamedRequest:
		return resolveNamed(root, r)
	default:
		return "", "", ErrArchiveNotFound
	}
}

func resolveSkin(ix *ArchiveIndex, root string, r SkinRequest) (string, string, error) {
	if r.ChromaID != nil {
		return resolveChroma(ix, root, *r.ChromaID)
	}

	if p, ok := ix.GetSkin(r.SkinID); ok {
		return withExt(p)
	}

	// Re-interpret as a chroma: the UI layer sometimes sends a chroma
	// id through the skin slot.
	return resolveChroma(ix, root, r.SkinID)
}

func resolveChroma(ix *ArchiveIndex, root string, chromaID int) (string, string, error) {
	if variant, ok := namedVariantFor(chromaID); ok {
		return resolveNamed(root, variant)
	}

	if p, ok := ix.GetChroma(chromaID); ok {
		return withExt(p)
	}

	return "", "", ErrArchiveNotFound
}

// resolveNamed searches the archive tree for the exact filename
// (archive extension then bundle extension), per spec.md §4.2 rule 4.
// A non-empty Folder narrows the search to that subdirectory; an empty
// Folder searches the whole archive tree recursively, matching the
// fake-id form lookups, which have no fixed champion-directory
// location to anchor on.
func resolveNamed(root string, r NamedRequest) (string, string, error) {
	for _, filename := range r.FilenamePatterns {
		if filepath.IsAbs(filename) {
			if fileExists(filename) {
				return withExt(filename)
			}

			continue
		}

		if r.Folder != "" {
			for _, ext := range archiveExtensions {
				candidate := filepath.Join(root, r.Folder, filename+"."+ext)
				if fileExists(candidate) {
					return candidate, ext, nil
				}
			}

			continue
		}

		if path, ext, ok := findNamedRecursive(root, filename); ok {
			return path, ext, nil
		}
	}

	return "", "", ErrArchiveNotFound
}

// findNamedRecursive walks the archive tree looking for the first file
// named filename.zip or filename.fantome, in that order, at any depth.
func findNamedRecursive(root, filename string) (path string, ext string, found bool) {
	for _, e := range archiveExtensions {
		name := filename + "." + e

		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil || found || d.IsDir() {
				return nil
			}

			if d.Name() == name {
				path, ext, found = p, e, true
			}

			return nil
		})

		if found {
			break
		}
	}

	return path, ext, found
}

func withExt(path string) (string, string, error) {
	ext := filepath.Ext(path)
	if len(ext) > 0 {
		ext = ext[1:]
	}

	if _, err := os.Stat(path); err != nil {
		return "", "", ErrArchiveNotFound
	}

	return path, ext, nil
}
