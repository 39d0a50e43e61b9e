package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdfedit/internal/apperr"
	"pdfedit/internal/model"
)

func TestEditService_Load(t *testing.T) {
	ctx := context.Background()
	stored := model.EditModel{Version: 3, Pages: map[string][]json.RawMessage{
		"0": {json.RawMessage(`{"type":"textbox","id":"a1","fontFamily":"Helvetica","bold":true}`)},
	}}

	tests := []struct {
		name       string
		id         string
		setupMocks func(e *testEnv)
		want       *model.EditModel
		wantErr    error
	}{
		{
			name: "never saved",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Find", ctx, testDocID).Return(nil, sql.ErrNoRows)
			},
			want: model.NewEditModel(),
		},
		{
			name: "stored model",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Find", ctx, testDocID).Return(&model.EditRecord{DocumentID: testDocID, Model: stored}, nil)
			},
			want: &stored,
		},
		{
			name: "stored null pages",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Find", ctx, testDocID).Return(&model.EditRecord{Model: model.EditModel{Version: 2}}, nil)
			},
			want: &model.EditModel{Version: 2, Pages: map[string][]json.RawMessage{}},
		},
		{
			name: "unknown document",
			id:   "missing",
			setupMocks: func(e *testEnv) {
				e.edits.On("Find", ctx, "missing").Return(nil, sql.ErrNoRows)
			},
			want: model.NewEditModel(),
		},
		{
			name: "repository error",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Find", ctx, testDocID).Return(nil, errors.New("db fail"))
			},
			wantErr: apperr.ErrPersistence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "A")
			tt.setupMocks(e)
			svc := NewEditService(e.store, e.edits)

			got, err := svc.Load(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			e.edits.AssertExpectations(t)
			e.repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		})
	}
}

func TestEditService_Save(t *testing.T) {
	ctx := context.Background()
	record := json.RawMessage(`{"type":"line","x1":0,"y1":0,"x2":5,"y2":5,"id":"keep-me"}`)

	tests := []struct {
		name       string
		in         *model.EditModel
		setupMocks func(e *testEnv)
		wantErr    error
		check      func(t *testing.T, out *model.EditModel)
	}{
		{
			name: "defaults version and keeps unknown fields",
			in:   &model.EditModel{Pages: map[string][]json.RawMessage{"0": {record}}},
			setupMocks: func(e *testEnv) {
				e.edits.On("Save", mock.Anything, mock.MatchedBy(func(rec *model.EditRecord) bool {
					return rec.DocumentID == testDocID && rec.Model.Version == 1 &&
						string(rec.Model.Pages["0"][0]) == string(record) && !rec.UpdatedAt.IsZero()
				})).Return(nil)
			},
			check: func(t *testing.T, out *model.EditModel) {
				assert.Equal(t, 1, out.Version)
				assert.JSONEq(t, string(record), string(out.Pages["0"][0]))
			},
		},
		{
			name: "nil pages become empty",
			in:   &model.EditModel{Version: 4},
			setupMocks: func(e *testEnv) {
				e.edits.On("Save", mock.Anything, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, out *model.EditModel) {
				assert.Equal(t, 4, out.Version)
				assert.NotNil(t, out.Pages)
			},
		},
		{
			name:       "record is not an object",
			in:         &model.EditModel{Pages: map[string][]json.RawMessage{"0": {json.RawMessage(`[1,2]`)}}},
			setupMocks: func(e *testEnv) {},
			wantErr:    apperr.ErrInvalidArgument,
		},
		{
			name:       "negative version",
			in:         &model.EditModel{Version: -1},
			setupMocks: func(e *testEnv) {},
			wantErr:    apperr.ErrInvalidArgument,
		},
		{
			name:       "nil model",
			setupMocks: func(e *testEnv) {},
			wantErr:    apperr.ErrInvalidArgument,
		},
		{
			name: "repository error",
			in:   model.NewEditModel(),
			setupMocks: func(e *testEnv) {
				e.edits.On("Save", mock.Anything, mock.Anything).Return(errors.New("db fail"))
			},
			wantErr: apperr.ErrPersistence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "A")
			tt.setupMocks(e)
			svc := NewEditService(e.store, e.edits)

			out, err := svc.Save(ctx, testDocID, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, out)
			e.edits.AssertExpectations(t)
		})
	}
}

func TestEditService_SaveUnknownDocument(t *testing.T) {
	e := newEnv(t, "A")
	e.repo.On("FindByID", mock.Anything, "missing").Return(nil, sql.ErrNoRows)
	svc := NewEditService(e.store, e.edits)

	_, err := svc.Save(context.Background(), "missing", model.NewEditModel())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	e.edits.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
