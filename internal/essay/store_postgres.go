// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zt-a/refgen-ai-backend/internal/platform/database/schema"
	"github.com/zt-a/refgen-ai-backend/internal/platform/dberr"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed essay store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// prefixed qualifies every column with a table alias.
func prefixed(alias string, columns []string) string {
	qualified := make([]string, len(columns))
	for index, column := range columns {
		qualified[index] = alias + "." + column
	}
	return strings.Join(qualified, ", ")
}

var (
	essayColumns    = prefixed("e", schema.EssayEssay.Columns())
	metadataColumns = prefixed("m", schema.EssayMetadata.Columns())
	chapterColumns  = prefixed("c", schema.EssayChapter.Columns())
)

// selectEssayWithMetadata reads an essay and its optional metadata row.
var selectEssayWithMetadata = fmt.Sprintf(`
	SELECT %s, %s
	FROM %s e
	LEFT JOIN %s m ON m.%s = e.%s`,
	essayColumns, metadataColumns,
	schema.EssayEssay.Table,
	schema.EssayMetadata.Table, schema.EssayMetadata.EssayID, schema.EssayEssay.ID,
)

// essayTargets returns scan targets for [schema.EssayEssay.Columns].
func essayTargets(essay *Essay, status *string) []any {
	return []any{
		&essay.ID, &essay.UserID, &essay.Topic, &essay.PageCount, &essay.ChapterCount,
		&essay.Language, status, &essay.TaskID, &essay.FailureReason,
		&essay.Introduction, &essay.Conclusion, &essay.References,
		&essay.IntroductionCharsCount, &essay.ConclusionCharsCount, &essay.ReferencesCharsCount,
		&essay.CreatedAt, &essay.UpdatedAt,
	}
}

// nullableMetadata mirrors a LEFT JOINed metadata row.
type nullableMetadata struct {
	EssayID     *int64
	University  *string
	Faculty     *string
	Subject     *string
	Course      *int
	PerformedBy *string
	CheckedBy   *string
	Group       *string
	City        *string
	Year        *int
}

func (row *nullableMetadata) targets() []any {
	return []any{
		&row.EssayID, &row.University, &row.Faculty, &row.Subject, &row.Course,
		&row.PerformedBy, &row.CheckedBy, &row.Group, &row.City, &row.Year,
	}
}

func (row *nullableMetadata) toMetadata() *Metadata {
	if row.EssayID == nil {
		return nil
	}
	value := func(pointer *string) string {
		if pointer == nil {
			return ""
		}
		return *pointer
	}
	number := func(pointer *int) int {
		if pointer == nil {
			return 0
		}
		return *pointer
	}
	return &Metadata{
		EssayID:     *row.EssayID,
		University:  value(row.University),
		Faculty:     value(row.Faculty),
		Subject:     value(row.Subject),
		Course:      number(row.Course),
		PerformedBy: value(row.PerformedBy),
		CheckedBy:   value(row.CheckedBy),
		Group:       value(row.Group),
		City:        value(row.City),
		Year:        number(row.Year),
	}
}

// scanEssayWithMetadata scans one row of [selectEssayWithMetadata].
func scanEssayWithMetadata(row pgx.Row) (*Essay, error) {
	var (
		essay    Essay
		status   string
		metadata nullableMetadata
	)

	targets := append(essayTargets(&essay, &status), metadata.targets()...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	essay.Status, _ = ParseStatus(status)
	essay.Metadata = metadata.toMetadata()
	return &essay, nil
}

func scanChapter(row pgx.Row, extra ...any) (*Chapter, error) {
	var chapter Chapter
	targets := append([]any{
		&chapter.ID, &chapter.EssayID, &chapter.Title, &chapter.Position,
		&chapter.Chars, &chapter.Content, &chapter.CreatedAt, &chapter.UpdatedAt,
	}, extra...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &chapter, nil
}

// # Plan Creation

/*
CreateWithPlan inserts the essay, its metadata and every chapter in one transaction.

Parameters:
  - context: context.Context
  - essay: *Essay
  - metadata: *Metadata
  - chapters: []*Chapter

Returns:
  - error: Storage failures; the transaction is rolled back
*/
func (repository *postgresRepository) CreateWithPlan(context context.Context, essay *Essay, metadata *Metadata, chapters []*Chapter) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to begin transaction")
	}
	defer transaction.Rollback(context)

	// Essay row
	insertEssay := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s, %s, %s`,
		schema.EssayEssay.Table,
		schema.EssayEssay.UserID, schema.EssayEssay.Topic, schema.EssayEssay.PageCount,
		schema.EssayEssay.ChapterCount, schema.EssayEssay.Language, schema.EssayEssay.Status,
		schema.EssayEssay.IntroductionCharsCount, schema.EssayEssay.ConclusionCharsCount,
		schema.EssayEssay.ReferencesCharsCount,
		schema.EssayEssay.ID, schema.EssayEssay.CreatedAt, schema.EssayEssay.UpdatedAt,
	)
	err = transaction.QueryRow(context, insertEssay,
		essay.UserID, essay.Topic, essay.PageCount, essay.ChapterCount, essay.Language, string(essay.Status),
		essay.IntroductionCharsCount, essay.ConclusionCharsCount, essay.ReferencesCharsCount,
	).Scan(&essay.ID, &essay.CreatedAt, &essay.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to create essay")
	}

	// Metadata snapshot
	insertMetadata := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schema.EssayMetadata.Table,
		strings.Join(schema.EssayMetadata.Columns(), ", "),
	)
	metadata.EssayID = essay.ID
	_, err = transaction.Exec(context, insertMetadata,
		metadata.EssayID, metadata.University, metadata.Faculty, metadata.Subject, metadata.Course,
		metadata.PerformedBy, metadata.CheckedBy, metadata.Group, metadata.City, metadata.Year,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to create essay metadata")
	}

	// Chapters
	insertChapter := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s, %s, %s`,
		schema.EssayChapter.Table,
		schema.EssayChapter.EssayID, schema.EssayChapter.Title,
		schema.EssayChapter.Position, schema.EssayChapter.Chars,
		schema.EssayChapter.ID, schema.EssayChapter.CreatedAt, schema.EssayChapter.UpdatedAt,
	)
	for _, chapter := range chapters {
		chapter.EssayID = essay.ID
		err = transaction.QueryRow(context, insertChapter,
			chapter.EssayID, chapter.Title, chapter.Position, chapter.Chars,
		).Scan(&chapter.ID, &chapter.CreatedAt, &chapter.UpdatedAt)
		if err != nil {
			return dberr.Wrap(err, "postgres: failed to create chapter")
		}
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "postgres: failed to commit plan transaction")
	}

	essay.Metadata = metadata
	essay.Chapters = chapters
	return nil
}

// # Dispatch

/*
DispatchGeneration dispatches a job under a row lock on the owner's essay.

Description: SELECT ... FOR UPDATE serialises concurrent callers. The first
caller dispatches and commits status GENERATING with the task id; the others
then observe the in-flight status and return it unchanged.

Parameters:
  - context: context.Context
  - id: int64
  - ownerID: string
  - dispatch: DispatchFunc

Returns:
  - *GenerationState: State after the call
  - bool: Whether a job was dispatched
  - error: ErrNotFound, the dispatch error, or storage failures
*/
func (repository *postgresRepository) DispatchGeneration(context context.Context, id int64, ownerID string, dispatch DispatchFunc) (*GenerationState, bool, error) {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return nil, false, dberr.Wrap(err, "postgres: failed to begin transaction")
	}
	defer transaction.Rollback(context)

	lock := fmt.Sprintf(`
		SELECT %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
		FOR UPDATE`,
		schema.EssayEssay.Status, schema.EssayEssay.TaskID, schema.EssayEssay.FailureReason,
		schema.EssayEssay.Table,
		schema.EssayEssay.ID, schema.EssayEssay.UserID,
	)

	state := &GenerationState{EssayID: id}
	var status string
	err = transaction.QueryRow(context, lock, id, ownerID).Scan(&status, &state.TaskID, &state.FailureReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, dberr.Wrap(err, "postgres: failed to lock essay")
	}
	state.Status, _ = ParseStatus(status)

	if state.Status.IsInFlight() {
		return state, false, nil
	}

	taskID, err := dispatch(context)
	if err != nil {
		return nil, false, err
	}

	update := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = NULL, %s = NOW()
		WHERE %s = $1`,
		schema.EssayEssay.Table,
		schema.EssayEssay.Status, schema.EssayEssay.TaskID,
		schema.EssayEssay.FailureReason, schema.EssayEssay.UpdatedAt,
		schema.EssayEssay.ID,
	)
	if _, err := transaction.Exec(context, update, id, string(StatusGenerating), taskID); err != nil {
		return nil, false, dberr.Wrap(err, "postgres: failed to store task id")
	}

	if err := transaction.Commit(context); err != nil {
		return nil, false, dberr.Wrap(err, "postgres: failed to commit dispatch")
	}

	state.Status = StatusGenerating
	state.TaskID = &taskID
	state.FailureReason = nil
	return state, true, nil
}

// # Reads

// FindByIDForOwner returns the owner's essay with its metadata.
func (repository *postgresRepository) FindByIDForOwner(context context.Context, id int64, ownerID string) (*Essay, error) {
	query := selectEssayWithMetadata + fmt.Sprintf(`
	WHERE e.%s = $1 AND e.%s = $2`, schema.EssayEssay.ID, schema.EssayEssay.UserID)

	essay, err := scanEssayWithMetadata(repository.pool.QueryRow(context, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dberr.Wrap(err, "postgres: failed to find essay")
	}
	return essay, nil
}

// FindByID returns an essay regardless of owner.
func (repository *postgresRepository) FindByID(context context.Context, id int64) (*Essay, error) {
	// FOR SHARE waits for an uncommitted DispatchGeneration on the row.
	query := selectEssayWithMetadata + fmt.Sprintf(`
	WHERE e.%s = $1
	FOR SHARE OF e`, schema.EssayEssay.ID)

	essay, err := scanEssayWithMetadata(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, dberr.Wrap(err, "postgres: failed to find essay")
	}
	return essay, nil
}

/*
ListByOwner returns a page of the owner's essays, newest first.

Parameters:
  - context: context.Context
  - ownerID: string
  - limit: int
  - offset: int

Returns:
  - []*Essay: Essays without metadata
  - int: Total essays owned
  - error: Storage failures
*/
func (repository *postgresRepository) ListByOwner(context context.Context, ownerID string, limit, offset int) ([]*Essay, int, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.EssayEssay.Table, schema.EssayEssay.UserID)

	var total int
	if err := repository.pool.QueryRow(context, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "postgres: failed to count essays")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s e
		WHERE e.%s = $1
		ORDER BY e.%s DESC, e.%s DESC
		LIMIT $2 OFFSET $3`,
		essayColumns,
		schema.EssayEssay.Table,
		schema.EssayEssay.UserID,
		schema.EssayEssay.CreatedAt, schema.EssayEssay.ID,
	)

	rows, err := repository.pool.Query(context, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "postgres: failed to list essays")
	}
	defer rows.Close()

	essays := make([]*Essay, 0, limit)
	for rows.Next() {
		var (
			essay  Essay
			status string
		)
		if err := rows.Scan(essayTargets(&essay, &status)...); err != nil {
			return nil, 0, dberr.Wrap(err, "postgres: failed to scan essay")
		}
		essay.Status, _ = ParseStatus(status)
		essays = append(essays, &essay)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "postgres: failed to iterate essays")
	}

	return essays, total, nil
}

// ListChapters returns the chapters of an essay ordered by position.
func (repository *postgresRepository) ListChapters(context context.Context, essayID int64) ([]*Chapter, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s c
		WHERE c.%s = $1
		ORDER BY c.%s ASC`,
		chapterColumns,
		schema.EssayChapter.Table,
		schema.EssayChapter.EssayID,
		schema.EssayChapter.Position,
	)

	rows, err := repository.pool.Query(context, query, essayID)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres: failed to list chapters")
	}
	defer rows.Close()

	chapters := []*Chapter{}
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "postgres: failed to scan chapter")
		}
		chapters = append(chapters, chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "postgres: failed to iterate chapters")
	}

	return chapters, nil
}

// FindChapterOwner returns a chapter and the user id that owns its essay.
func (repository *postgresRepository) FindChapterOwner(context context.Context, chapterID int64) (*Chapter, string, error) {
	query := fmt.Sprintf(`
		SELECT %s, e.%s
		FROM %s c
		JOIN %s e ON e.%s = c.%s
		WHERE c.%s = $1`,
		chapterColumns, schema.EssayEssay.UserID,
		schema.EssayChapter.Table,
		schema.EssayEssay.Table, schema.EssayEssay.ID, schema.EssayChapter.EssayID,
		schema.EssayChapter.ID,
	)

	var ownerID string
	chapter, err := scanChapter(repository.pool.QueryRow(context, query, chapterID), &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrChapterNotFound
		}
		return nil, "", dberr.Wrap(err, "postgres: failed to find chapter")
	}
	return chapter, ownerID, nil
}

// # Writes

// UpdateChapterTitle renames a chapter and returns the updated row.
func (repository *postgresRepository) UpdateChapterTitle(context context.Context, chapterID int64, title string) (*Chapter, error) {
	query := fmt.Sprintf(`
		UPDATE %s c
		SET %s = $2, %s = NOW()
		WHERE c.%s = $1
		RETURNING %s`,
		schema.EssayChapter.Table,
		schema.EssayChapter.Title, schema.EssayChapter.UpdatedAt,
		schema.EssayChapter.ID,
		chapterColumns,
	)

	chapter, err := scanChapter(repository.pool.QueryRow(context, query, chapterID, title))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChapterNotFound
		}
		return nil, dberr.Wrap(err, "postgres: failed to update chapter title")
	}
	return chapter, nil
}

/*
MarkFailedForTask sets status FAILURE and stores the reason while the essay is
still GENERATING under taskID.

Returns:
  - bool: Whether the row was updated
  - error: Storage failures
*/
func (repository *postgresRepository) MarkFailedForTask(context context.Context, id int64, taskID, reason string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $4, %s = $5, %s = NOW()
		WHERE %s = $1 AND %s = $2 AND %s = $3`,
		schema.EssayEssay.Table,
		schema.EssayEssay.Status, schema.EssayEssay.FailureReason, schema.EssayEssay.UpdatedAt,
		schema.EssayEssay.ID, schema.EssayEssay.TaskID, schema.EssayEssay.Status,
	)

	tag, err := repository.pool.Exec(context, query, id, taskID, string(StatusGenerating), string(StatusFailure), reason)
	if err != nil {
		return false, dberr.Wrap(err, "postgres: failed to update essay status")
	}
	return tag.RowsAffected() > 0, nil
}

/*
SaveGenerated stores every generated text and status GENERATED atomically,
provided the essay is still GENERATING under taskID.

Parameters:
  - context: context.Context
  - id: int64
  - taskID: string
  - text: GeneratedText

Returns:
  - error: ErrTaskSuperseded or storage failures; nothing is stored on error
*/
func (repository *postgresRepository) SaveGenerated(context context.Context, id int64, taskID string, text GeneratedText) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to begin transaction")
	}
	defer transaction.Rollback(context)

	updateEssay := fmt.Sprintf(`
		UPDATE %s
		SET %s = $4, %s = $5, %s = $6, %s = $7, %s = NULL, %s = NOW()
		WHERE %s = $1 AND %s = $2 AND %s = $3`,
		schema.EssayEssay.Table,
		schema.EssayEssay.Introduction, schema.EssayEssay.Conclusion, schema.EssayEssay.References,
		schema.EssayEssay.Status, schema.EssayEssay.FailureReason, schema.EssayEssay.UpdatedAt,
		schema.EssayEssay.ID, schema.EssayEssay.TaskID, schema.EssayEssay.Status,
	)
	tag, err := transaction.Exec(context, updateEssay,
		id, taskID, string(StatusGenerating),
		text.Introduction, text.Conclusion, text.References, string(StatusGenerated),
	)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to store essay text")
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskSuperseded
	}

	if len(text.Chapters) > 0 {
		updateChapter := fmt.Sprintf(`
			UPDATE %s
			SET %s = $2, %s = NOW()
			WHERE %s = $1 AND %s = $3`,
			schema.EssayChapter.Table,
			schema.EssayChapter.Content, schema.EssayChapter.UpdatedAt,
			schema.EssayChapter.ID, schema.EssayChapter.EssayID,
		)

		batch := &pgx.Batch{}
		for chapterID, content := range text.Chapters {
			batch.Queue(updateChapter, chapterID, content, id)
		}

		results := transaction.SendBatch(context, batch)
		for range text.Chapters {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return dberr.Wrap(err, "postgres: failed to store chapter text")
			}
		}
		if err := results.Close(); err != nil {
			return dberr.Wrap(err, "postgres: failed to store chapter text")
		}
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "postgres: failed to commit generated text")
	}
	return nil
}
