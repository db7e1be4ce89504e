package semantic

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
)

// CollectDocuments reads every document under root that the lexical search
// would consider, in path order. Binary files are skipped silently; unreadable
// ones are skipped and summarized in the returned warning.
func CollectDocuments(ctx context.Context, root string, fileTypes []string, logger *slog.Logger) ([]Document, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var agg errclass.Aggregate
	var docs []Document

	onErr := func(path string, err error) {
		agg.Add(err)
		logger.Debug("skipping directory", "path", path, "error", err)
	}
	err := lexical.WalkDocuments(ctx, root, fileTypes, onErr, func(path string) error {
		text, err := lexical.ReadDocument(path)
		switch {
		case errors.Is(err, lexical.ErrBinaryFile):
			return nil
		case err != nil:
			agg.Add(err)
			logger.Debug("skipping file", "path", path, "error", err)
			return nil
		}
		docs = append(docs, Document{Path: path, Content: text})
		return nil
	})
	if err != nil {
		return nil, agg.Warning(), err
	}
	return docs, agg.Warning(), nil
}
