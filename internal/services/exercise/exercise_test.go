package exercise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

const exerciseID = "3b241101-e2bb-4255-8caf-4136c566a962"

type RepoMock struct {
	mock.Mock
	txCalls int
}

func (m *RepoMock) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txCalls++
	return fn(ctx)
}

func (m *RepoMock) GetUnitChars(ctx context.Context, unitID int) (string, error) {
	args := m.Called(ctx, unitID)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) InsertExercise(ctx context.Context, e models.Exercise) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) GetExercise(ctx context.Context, id, userID string) (*models.Exercise, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exercise), args.Error(1)
}

func (m *RepoMock) UpdateExercise(ctx context.Context, e models.Exercise) error {
	return m.Called(ctx, e).Error(0)
}

func (m *RepoMock) ListExercises(ctx context.Context, userID string, limit, offset int) ([]models.Exercise, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Exercise), args.Int(1), args.Error(2)
}

func (m *RepoMock) DeleteExercise(ctx context.Context, id, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

type PointsMock struct{ mock.Mock }

func (m *PointsMock) Check(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *PointsMock) CheckAndEarn(ctx context.Context, userID string, points, pointsType int, remark string) error {
	return m.Called(ctx, userID, points, pointsType, remark).Error(0)
}

// fakeContent генерирует уровни из базовых иероглифов и аудио из текста уровня.
type fakeContent struct {
	genErr   error
	audioErr error
	generate atomic.Int32
	audio    atomic.Int32
}

func (f *fakeContent) GenerateExercise(_ context.Context, baseChars string, _, _ int) (models.ExerciseContent, error) {
	f.generate.Add(1)
	if f.genErr != nil {
		return models.ExerciseContent{}, f.genErr
	}
	return models.ExerciseContent{
		Level1: []string{baseChars + "1a", baseChars + "1b"},
		Level2: []string{baseChars + "2a", baseChars + "2b"},
		Level3: []string{baseChars + "3a"},
		Level4: []string{baseChars + "4a", baseChars + "4b", baseChars + "4c"},
	}, nil
}

func (f *fakeContent) GenerateAudio(_ context.Context, lines []string) ([]byte, error) {
	f.audio.Add(1)
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	return []byte(strings.Join(lines, "|")), nil
}

type fakeStore struct {
	err error
}

func (f *fakeStore) UploadAudio(_ context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn/" + string(data) + ".mp3", nil
}

func newTestService(repo *RepoMock, points *PointsMock, content *fakeContent, store *fakeStore) *Service {
	return New(repo, points, content, store, metrics.Nop(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerate_ByChars(t *testing.T) {
	repo := new(RepoMock)
	points := new(PointsMock)
	content := &fakeContent{}
	s := newTestService(repo, points, content, &fakeStore{})

	points.On("Check", mock.Anything, "u-1").Return(nil)
	points.On("CheckAndEarn", mock.Anything, "u-1", 10, models.PointsTypeGeneration, "生成题目").Return(nil)
	repo.On("InsertExercise", mock.Anything, mock.MatchedBy(func(e models.Exercise) bool {
		return e.UserID == "u-1" && e.BaseChars == "山水" && e.Difficulty == 1 && e.Style == 1 &&
			e.AudioURLs[0] == "https://cdn/山水1a|山水1b.mp3" && e.AudioURLs[3] == "https://cdn/山水4a|山水4b|山水4c.mp3"
	})).Return(exerciseID, nil)

	got, err := s.Generate(context.Background(), "u-1", GenerateRequest{Type: models.GenerateByChars, Chars: " 山水 "})
	require.NoError(t, err)
	assert.Equal(t, exerciseID, got.ID)
	assert.Equal(t, "https://cdn/山水3a.mp3", got.AudioURL3)
	assert.Equal(t, int32(4), content.audio.Load())
	assert.Equal(t, 1, repo.txCalls)
	points.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestGenerate_ByUnit(t *testing.T) {
	repo := new(RepoMock)
	points := new(PointsMock)
	s := newTestService(repo, points, &fakeContent{}, &fakeStore{})

	repo.On("GetUnitChars", mock.Anything, 7).Return("日月", nil)
	points.On("Check", mock.Anything, "u-1").Return(nil)
	points.On("CheckAndEarn", mock.Anything, "u-1", 10, 1, "生成题目").Return(nil)
	repo.On("InsertExercise", mock.Anything, mock.MatchedBy(func(e models.Exercise) bool {
		return e.BaseChars == "日月" && e.Difficulty == 3 && e.Style == 2
	})).Return(exerciseID, nil)

	got, err := s.Generate(context.Background(), "u-1", GenerateRequest{Type: models.GenerateByUnit, UnitID: 7, Difficulty: 3, Style: 2})
	require.NoError(t, err)
	assert.Equal(t, "日月", got.BaseChars)
}

func TestGenerate_Rejections(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		req         GenerateRequest
		setup       func(repo *RepoMock, points *PointsMock)
		content     *fakeContent
		store       *fakeStore
		wantErr     error
		wantKind    apperr.Kind
		wantGenCall bool
	}{
		{
			name:     "unknown type",
			req:      GenerateRequest{Type: 3, Chars: "山"},
			setup:    func(*RepoMock, *PointsMock) {},
			wantErr:  apperr.ErrInvalidGenerationType,
			wantKind: apperr.KindValidation,
		},
		{
			name:     "empty chars",
			req:      GenerateRequest{Type: models.GenerateByChars, Chars: "  "},
			setup:    func(*RepoMock, *PointsMock) {},
			wantErr:  apperr.ErrEmptyChars,
			wantKind: apperr.KindValidation,
		},
		{
			name: "unknown unit",
			req:  GenerateRequest{Type: models.GenerateByUnit, UnitID: 99},
			setup: func(repo *RepoMock, _ *PointsMock) {
				repo.On("GetUnitChars", mock.Anything, 99).Return("", storage.ErrNotFound)
			},
			wantErr:  apperr.ErrUnitNotFound,
			wantKind: apperr.KindNotFound,
		},
		{
			name: "points gate refuses before upstream",
			req:  GenerateRequest{Type: models.GenerateByChars, Chars: "山"},
			setup: func(_ *RepoMock, points *PointsMock) {
				points.On("Check", mock.Anything, "u-1").Return(apperr.ErrMembershipRequired)
			},
			wantErr:  apperr.ErrMembershipRequired,
			wantKind: apperr.KindForbidden,
		},
		{
			name: "content failure",
			req:  GenerateRequest{Type: models.GenerateByChars, Chars: "山"},
			setup: func(_ *RepoMock, points *PointsMock) {
				points.On("Check", mock.Anything, "u-1").Return(nil)
			},
			content:     &fakeContent{genErr: boom},
			wantErr:     boom,
			wantKind:    apperr.KindUpstream,
			wantGenCall: true,
		},
		{
			name: "audio failure",
			req:  GenerateRequest{Type: models.GenerateByChars, Chars: "山"},
			setup: func(_ *RepoMock, points *PointsMock) {
				points.On("Check", mock.Anything, "u-1").Return(nil)
			},
			content:     &fakeContent{audioErr: boom},
			wantErr:     boom,
			wantKind:    apperr.KindUpstream,
			wantGenCall: true,
		},
		{
			name: "upload failure",
			req:  GenerateRequest{Type: models.GenerateByChars, Chars: "山"},
			setup: func(_ *RepoMock, points *PointsMock) {
				points.On("Check", mock.Anything, "u-1").Return(nil)
			},
			store:       &fakeStore{err: boom},
			wantErr:     boom,
			wantKind:    apperr.KindUpstream,
			wantGenCall: true,
		},
		{
			name: "quota reached between check and earn",
			req:  GenerateRequest{Type: models.GenerateByChars, Chars: "山"},
			setup: func(_ *RepoMock, points *PointsMock) {
				points.On("Check", mock.Anything, "u-1").Return(nil)
				points.On("CheckAndEarn", mock.Anything, "u-1", 10, 1, "生成题目").Return(apperr.ErrQuotaExceeded)
			},
			wantErr:     apperr.ErrQuotaExceeded,
			wantKind:    apperr.KindConflict,
			wantGenCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			points := new(PointsMock)
			content := tt.content
			if content == nil {
				content = &fakeContent{}
			}
			store := tt.store
			if store == nil {
				store = &fakeStore{}
			}
			s := newTestService(repo, points, content, store)
			tt.setup(repo, points)

			_, err := s.Generate(context.Background(), "u-1", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Equal(t, tt.wantGenCall, content.generate.Load() > 0)
			repo.AssertNotCalled(t, "InsertExercise", mock.Anything, mock.Anything)
		})
	}
}

func TestShuffle(t *testing.T) {
	repo := new(RepoMock)
	s := newTestService(repo, new(PointsMock), &fakeContent{}, &fakeStore{})
	// Разворот вместо случайной перестановки делает результат предсказуемым.
	s.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	stored := &models.Exercise{
		ID: exerciseID, UserID: "u-1", BaseChars: "山",
		Content: models.ExerciseContent{
			Level1: []string{"a", "b"},
			Level2: []string{"c"},
			Level3: []string{"d", "e", "f"},
			Level4: []string{},
		},
	}
	repo.On("GetExercise", mock.Anything, exerciseID, "u-1").Return(stored, nil)
	repo.On("UpdateExercise", mock.Anything, mock.MatchedBy(func(e models.Exercise) bool {
		return e.ID == exerciseID && e.AudioURLs[0] == "https://cdn/b|a.mp3"
	})).Return(nil)

	got, err := s.Shuffle(context.Background(), "u-1", exerciseID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got.Content.Level1)
	assert.Equal(t, []string{"f", "e", "d"}, got.Content.Level3)
	assert.Equal(t, "https://cdn/f|e|d.mp3", got.AudioURL3)
	assert.Empty(t, got.ID)
	repo.AssertExpectations(t)
}

func TestShuffle_PreservesLines(t *testing.T) {
	repo := new(RepoMock)
	s := newTestService(repo, new(PointsMock), &fakeContent{}, &fakeStore{})

	lines := make([]string, 20)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%d", i)
	}
	original := append([]string(nil), lines...)
	repo.On("GetExercise", mock.Anything, exerciseID, "u-1").Return(&models.Exercise{
		ID: exerciseID, UserID: "u-1", Content: models.ExerciseContent{Level1: lines},
	}, nil)
	repo.On("UpdateExercise", mock.Anything, mock.Anything).Return(nil)

	got, err := s.Shuffle(context.Background(), "u-1", exerciseID)
	require.NoError(t, err)
	assert.ElementsMatch(t, original, got.Content.Level1)
}

func TestShuffle_NotOwned(t *testing.T) {
	repo := new(RepoMock)
	s := newTestService(repo, new(PointsMock), &fakeContent{}, &fakeStore{})
	repo.On("GetExercise", mock.Anything, exerciseID, "u-2").Return(nil, storage.ErrNotFound)

	_, err := s.Shuffle(context.Background(), "u-2", exerciseID)
	assert.ErrorIs(t, err, apperr.ErrExerciseNotFound)

	_, err = s.Shuffle(context.Background(), "u-2", "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrExerciseNotFound)
}

func TestHistory(t *testing.T) {
	repo := new(RepoMock)
	s := newTestService(repo, new(PointsMock), &fakeContent{}, &fakeStore{})
	repo.On("ListExercises", mock.Anything, "u-1", 10, 10).Return([]models.Exercise{
		{ID: "e-1", BaseChars: "山", AudioURLs: [4]string{"a1", "a2", "a3", "a4"}},
	}, 11, nil)

	page, err := s.History(context.Background(), "u-1", models.Pagination{Page: 2, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 11, page.Total)
	require.Len(t, page.List, 1)
	assert.Equal(t, "a4", page.List[0].AudioURL4)
}

func TestDelete(t *testing.T) {
	repo := new(RepoMock)
	s := newTestService(repo, new(PointsMock), &fakeContent{}, &fakeStore{})
	repo.On("DeleteExercise", mock.Anything, exerciseID, "u-1").Return(nil)
	repo.On("DeleteExercise", mock.Anything, exerciseID, "u-2").Return(storage.ErrNotFound)

	require.NoError(t, s.Delete(context.Background(), "u-1", exerciseID))
	assert.ErrorIs(t, s.Delete(context.Background(), "u-2", exerciseID), apperr.ErrExerciseNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), "u-1", "42"), apperr.ErrExerciseNotFound)
}
