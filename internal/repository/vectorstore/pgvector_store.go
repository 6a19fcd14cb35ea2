package vectorstore

import (
	"context"
	"fmt"
	"time"

	"ai-quiz-generator-be/internal/entity"
	"ai-quiz-generator-be/internal/repository/unitofwork"
	"ai-quiz-generator-be/pkg/retriever/dense"

	"github.com/google/uuid"
)

var _ dense.VectorStore = (*PgvectorStore)(nil)

// PgvectorStore keeps passage vectors in the passage_embeddings table.
type PgvectorStore struct {
	uowFactory unitofwork.RepositoryFactory
	model      string
}

func NewPgvectorStore(uowFactory unitofwork.RepositoryFactory, model string) *PgvectorStore {
	return &PgvectorStore{
		uowFactory: uowFactory,
		model:      model,
	}
}

func (s *PgvectorStore) Load(ctx context.Context, setKey string, n int) ([][]float32, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.PassageEmbeddingRepository().FindBySetKey(ctx, setKey)
	if err != nil {
		return nil, false, fmt.Errorf("loading set %s: %w", setKey, err)
	}
	if len(rows) != n {
		return nil, false, nil
	}

	vectors := make([][]float32, n)
	for i, row := range rows {
		if row.Position != i {
			return nil, false, nil
		}
		vectors[i] = row.EmbeddingValue
	}
	return vectors, true, nil
}

func (s *PgvectorStore) Save(ctx context.Context, setKey string, passages []string, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return fmt.Errorf("saving set %s: %d passages but %d vectors", setKey, len(passages), len(vectors))
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	repo := uow.PassageEmbeddingRepository()
	if err := repo.DeleteBySetKey(ctx, setKey); err != nil {
		return fmt.Errorf("resetting set %s: %w", setKey, err)
	}

	now := time.Now()
	rows := make([]*entity.PassageEmbedding, len(passages))
	for i, p := range passages {
		rows[i] = &entity.PassageEmbedding{
			Id:             uuid.New(),
			SetKey:         setKey,
			Position:       i,
			Content:        p,
			Model:          s.model,
			EmbeddingValue: vectors[i],
			CreatedAt:      now,
		}
	}
	if err := repo.CreateBulk(ctx, rows); err != nil {
		return fmt.Errorf("saving set %s: %w", setKey, err)
	}

	return uow.Commit()
}
