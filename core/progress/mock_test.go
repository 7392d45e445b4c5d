package progress_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/calendar"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
)

type mockRepo struct {
	mock.Mock
}

var _ progress.Repository = (*mockRepo)(nil)

func (m *mockRepo) GetStudent(ctx context.Context, id string, _ ...core.DBExecutor) (progress.Student, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(progress.Student), args.Error(1)
}

func (m *mockRepo) GetIntervention(ctx context.Context, id string, _ ...core.DBExecutor) (progress.Intervention, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(progress.Intervention), args.Error(1)
}

func (m *mockRepo) QueryStudentInterventions(ctx context.Context, studentID string, endedSince calendar.Date, _ ...core.DBExecutor) ([]progress.Intervention, error) {
	args := m.Called(ctx, studentID, endedSince)
	return args.Get(0).([]progress.Intervention), args.Error(1)
}

func (m *mockRepo) UpsertEntry(ctx context.Context, entry progress.Entry, _ ...core.DBExecutor) (progress.Entry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(progress.Entry), args.Error(1)
}

func (m *mockRepo) GetEntry(ctx context.Context, id string, _ ...core.DBExecutor) (progress.Entry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(progress.Entry), args.Error(1)
}

func (m *mockRepo) GetEntryForWeek(ctx context.Context, interventionID string, weekOf calendar.Date, _ ...core.DBExecutor) (progress.Entry, error) {
	args := m.Called(ctx, interventionID, weekOf)
	return args.Get(0).(progress.Entry), args.Error(1)
}

func (m *mockRepo) QueryEntries(ctx context.Context, filter progress.EntryFilter, _ ...core.DBExecutor) ([]progress.LogEntry, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]progress.LogEntry), args.Error(1)
}

func (m *mockRepo) UpdateEntry(ctx context.Context, entry progress.Entry, _ ...core.DBExecutor) (progress.Entry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(progress.Entry), args.Error(1)
}

func (m *mockRepo) DeleteEntry(ctx context.Context, id string, _ ...core.DBExecutor) (progress.Entry, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(progress.Entry), args.Error(1)
}

func (m *mockRepo) QueryMissing(ctx context.Context, tenantID string, weekOf calendar.Date, _ ...core.DBExecutor) ([]progress.MissingLog, error) {
	args := m.Called(ctx, tenantID, weekOf)
	return args.Get(0).([]progress.MissingLog), args.Error(1)
}

func (m *mockRepo) CreateNote(ctx context.Context, note progress.Note, _ ...core.DBExecutor) (progress.Note, error) {
	args := m.Called(ctx, note)
	return args.Get(0).(progress.Note), args.Error(1)
}

func (m *mockRepo) QueryNotes(ctx context.Context, studentID string, from, to calendar.Date, _ ...core.DBExecutor) ([]progress.Note, error) {
	args := m.Called(ctx, studentID, from, to)
	return args.Get(0).([]progress.Note), args.Error(1)
}
