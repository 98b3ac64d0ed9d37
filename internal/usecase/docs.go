package usecase

import (
	"sort"

	"doclens/internal/domain"
	"doclens/internal/port"
)

// ListDocuments summarizes every document with any stored artifact, in
// stable id order. Missing artifacts leave their fields zero rather than
// failing the listing.
func ListDocuments(repo port.Repository) ([]domain.DocumentInfo, error) {
	ids, err := repo.ListDocuments()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	infos := make([]domain.DocumentInfo, 0, len(ids))
	for _, id := range ids {
		info := domain.DocumentInfo{ID: id}
		if records, err := repo.ReadVectors(id); err == nil {
			info.Vectors = len(records)
		}
		if status, err := repo.GetStatus(id); err == nil {
			info.Status = status.State
		}
		if meta, err := repo.GetMetadata(id); err == nil {
			info.Metadata = meta
			info.Name = meta.Title
		}
		infos = append(infos, info)
	}
	return infos, nil
}
