package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func testLogger() *observability.Logger {
	return observability.NewLoggerFromZap(zap.NewNop())
}

func sampleContacts() []targeting.Contact {
	return []targeting.Contact{
		{ID: "1", Name: "Ana Diaz", Email: "ana@example.com", Phone: "555-0101", VehicleAge: targeting.Int(2), Mileage: targeting.Int(20000),
			WarrantyStatus: targeting.WarrantyActive, LoyaltyTier: targeting.LoyaltyGold, Tags: []string{"VIP"}},
		{ID: "2", Name: "Bo Lee", Email: "bo@example.com", VehicleAge: targeting.Int(7), Mileage: targeting.Int(90000),
			WarrantyStatus: targeting.WarrantyExpired, LoyaltyTier: targeting.LoyaltyBronze},
		{ID: "3", Name: "Cy Park", Phone: "555-0103", VehicleAge: targeting.Int(4), Mileage: targeting.Int(48000),
			WarrantyStatus: targeting.WarrantyExpiring, LoyaltyTier: targeting.LoyaltyPlatinum},
	}
}

func newTestProcessor(t *testing.T, cfg Config) *TargetListProcessor {
	t.Helper()
	store, err := targeting.NewContactStore(sampleContacts())
	require.NoError(t, err)
	return New(store, cfg, testLogger())
}

func TestInit_LoadsContactsAndLists(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	metrics := observability.NewMetrics()

	stored := targeting.SavedList{ID: "l1", Name: "Q1 List", ContactIDs: []string{"1"}}
	repo.EXPECT().LoadContacts(gomock.Any()).Return(sampleContacts()[:2], nil)
	repo.EXPECT().LoadSavedLists(gomock.Any()).Return([]targeting.SavedList{stored}, nil)

	store, err := targeting.NewContactStore(nil)
	require.NoError(t, err)
	p := New(store, Config{Repository: repo, Metrics: metrics}, testLogger())

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, []string{"1", "2"}, targeting.ContactIDs(p.Contacts()))
	assert.Equal(t, []targeting.SavedList{stored}, p.ListSavedLists())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ContactsLoaded))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SavedLists))
}

func TestInit_LoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	repo.EXPECT().LoadContacts(gomock.Any()).Return(nil, errors.New("connection refused"))
	repo.EXPECT().LoadSavedLists(gomock.Any()).Return(nil, nil).AnyTimes()

	store, err := targeting.NewContactStore(nil)
	require.NoError(t, err)
	p := New(store, Config{Repository: repo}, testLogger())

	assert.EqualError(t, p.Init(context.Background()), "connection refused")
	assert.Zero(t, store.Len())
}

func TestRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	p := newTestProcessor(t, Config{Repository: repo})
	p.ToggleContact("3")

	repo.EXPECT().LoadContacts(gomock.Any()).Return(sampleContacts()[:1], nil)

	n, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1"}, targeting.ContactIDs(p.Contacts()))
	assert.Equal(t, []string{"3"}, p.Selection().IDs, "selection keeps weak references")
}

func TestRefresh_KeepsContactsImportedDuringReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	store, err := targeting.NewContactStore(sampleContacts())
	require.NoError(t, err)
	p := New(store, Config{Repository: repo}, testLogger())

	imported := targeting.Contact{ID: "9", Name: "Di Ng", Phone: "555-0109"}
	mergeDone := make(chan int, 1)
	repo.EXPECT().LoadContacts(gomock.Any()).DoAndReturn(func(context.Context) ([]targeting.Contact, error) {
		snapshot := sampleContacts()
		go func() {
			accepted, _, err := store.Merge(context.Background(), []targeting.Contact{imported}, nil)
			assert.NoError(t, err)
			mergeDone <- len(accepted)
		}()
		// Give the import a chance to run before the snapshot is returned.
		time.Sleep(20 * time.Millisecond)
		return snapshot, nil
	})

	n, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, 1, <-mergeDone)
	assert.Equal(t, 4, store.Len())
	_, ok := store.Get("9")
	assert.True(t, ok, "contact accepted during the reload must stay in the store")
}

func TestAddContacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	p := newTestProcessor(t, Config{Repository: repo})

	repo.EXPECT().PersistContacts(gomock.Any(), []targeting.Contact{{ID: "4", Name: "Di"}}).Return(nil)
	require.NoError(t, p.AddContacts(context.Background(), []targeting.Contact{{ID: "4", Name: "Di"}}))
	assert.Len(t, p.Contacts(), 4)

	err := p.AddContacts(context.Background(), []targeting.Contact{{ID: "5"}, {ID: "1"}})
	var dup *targeting.DuplicateIDError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"1"}, dup.IDs)
	assert.Len(t, p.Contacts(), 4)
}

func TestFilterContacts(t *testing.T) {
	metrics := observability.NewMetrics()
	p := newTestProcessor(t, Config{Metrics: metrics})
	ctx := context.Background()

	got, err := p.FilterContacts(ctx, targeting.FilterCriteria{VehicleAge: &targeting.Range{Min: 0, Max: 5}, Mileage: &targeting.Range{Min: 0, Max: 30000}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, targeting.ContactIDs(got))

	got, err = p.FilterContacts(ctx, targeting.FilterCriteria{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = p.FilterContacts(ctx, targeting.FilterCriteria{Mileage: &targeting.Range{Min: 10, Max: 5}})
	assert.ErrorIs(t, err, targeting.ErrValidation)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FilterEvaluations))
}

func TestSelection_ToggleSelectAllClear(t *testing.T) {
	p := newTestProcessor(t, Config{})
	ctx := context.Background()

	assert.True(t, p.ToggleContact("2"))
	assert.Equal(t, SelectionState{IDs: []string{"2"}, Count: 1, CanCreateCampaign: true}, p.Selection())

	state, err := p.SelectAllVisible(ctx, targeting.FilterCriteria{VehicleAge: &targeting.Range{Min: 0, Max: 5}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, state.IDs, "select all replaces the previous selection")

	assert.False(t, p.ToggleContact("1"))
	assert.Equal(t, []string{"3"}, p.Selection().IDs)

	p.ClearSelection()
	assert.Equal(t, SelectionState{IDs: []string{}, Count: 0, CanCreateCampaign: false}, p.Selection())
}

func TestSaveList_UsesSelectionAndPublishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	publisher := NewMockEventPublisher(ctrl)
	metrics := observability.NewMetrics()
	p := newTestProcessor(t, Config{Repository: repo, Publisher: publisher, Metrics: metrics})

	criteria := targeting.FilterCriteria{LoyaltyTier: targeting.LoyaltyGold}
	p.ToggleContact("1")
	p.ToggleContact("3")

	var persisted targeting.SavedList
	repo.EXPECT().PersistSavedList(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, l targeting.SavedList) error {
		persisted = l
		assert.Empty(t, p.ListSavedLists(), "list must not be visible before it is persisted")
		return nil
	})
	publisher.EXPECT().PublishListSaved(gomock.Any(), gomock.Any())

	saved, err := p.SaveList(context.Background(), "Q1 List", criteria, nil)
	require.NoError(t, err)

	assert.Equal(t, "Q1 List", saved.Name)
	assert.Equal(t, []string{"1", "3"}, saved.ContactIDs)
	assert.Equal(t, criteria, saved.Filters)
	assert.Equal(t, persisted, saved)
	assert.Equal(t, []targeting.SavedList{saved}, p.ListSavedLists())
	assert.Equal(t, []string{"1", "3"}, p.Selection().IDs, "saving leaves the selection alone")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SavedLists))
}

func TestSaveList_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	p := newTestProcessor(t, Config{Repository: repo})
	ctx := context.Background()

	repo.EXPECT().PersistSavedList(gomock.Any(), gomock.Any()).Return(nil)
	_, err := p.SaveList(ctx, "Q1 List", targeting.FilterCriteria{}, []string{"1"})
	require.NoError(t, err)

	_, err = p.SaveList(ctx, "Q1 List", targeting.FilterCriteria{}, []string{"2"})
	assert.ErrorIs(t, err, targeting.ErrDuplicateName)

	_, err = p.SaveList(ctx, "   ", targeting.FilterCriteria{}, []string{"2"})
	assert.ErrorIs(t, err, targeting.ErrEmptyName)

	_, err = p.SaveList(ctx, "Bad", targeting.FilterCriteria{LoyaltyTier: "Diamond"}, nil)
	assert.ErrorIs(t, err, targeting.ErrValidation)

	assert.Len(t, p.ListSavedLists(), 1)
}

func TestSaveList_PersistFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	p := newTestProcessor(t, Config{Repository: repo})

	repo.EXPECT().PersistSavedList(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := p.SaveList(context.Background(), "Q1 List", targeting.FilterCriteria{}, []string{"1"})
	assert.EqualError(t, err, "disk full")
	assert.Empty(t, p.ListSavedLists())
}

func TestSaveList_SnapshotIsIndependent(t *testing.T) {
	p := newTestProcessor(t, Config{})
	criteria := targeting.FilterCriteria{VehicleAge: &targeting.Range{Min: 0, Max: 5}}
	ids := []string{"1", "3"}

	saved, err := p.SaveList(context.Background(), "Newer", criteria, ids)
	require.NoError(t, err)

	criteria.VehicleAge.Max = 99
	ids[0] = "2"
	p.ClearSelection()

	got, err := p.GetSavedList(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Filters.VehicleAge.Max)
	assert.Equal(t, []string{"1", "3"}, got.ContactIDs)
}

func TestRenameSavedList(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	p := newTestProcessor(t, Config{Repository: repo})
	ctx := context.Background()

	repo.EXPECT().PersistSavedList(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	a, err := p.SaveList(ctx, "A", targeting.FilterCriteria{}, []string{"1"})
	require.NoError(t, err)
	_, err = p.SaveList(ctx, "B", targeting.FilterCriteria{}, []string{"2"})
	require.NoError(t, err)

	_, err = p.RenameSavedList(ctx, a.ID, "B")
	assert.ErrorIs(t, err, targeting.ErrDuplicateName)

	_, err = p.RenameSavedList(ctx, "missing", "C")
	assert.ErrorIs(t, err, targeting.ErrListNotFound)

	repo.EXPECT().RenameSavedList(gomock.Any(), a.ID, "C").Return(errors.New("timeout"))
	_, err = p.RenameSavedList(ctx, a.ID, "C")
	assert.EqualError(t, err, "timeout")

	repo.EXPECT().RenameSavedList(gomock.Any(), a.ID, "C").Return(nil)
	renamed, err := p.RenameSavedList(ctx, a.ID, "C")
	require.NoError(t, err)
	assert.Equal(t, "C", renamed.Name)
	assert.Equal(t, a.ContactIDs, renamed.ContactIDs)
}

func TestDeleteSavedList(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	publisher := NewMockEventPublisher(ctrl)
	p := newTestProcessor(t, Config{Repository: repo, Publisher: publisher})
	ctx := context.Background()

	repo.EXPECT().PersistSavedList(gomock.Any(), gomock.Any()).Return(nil)
	publisher.EXPECT().PublishListSaved(gomock.Any(), gomock.Any())
	saved, err := p.SaveList(ctx, "Q1 List", targeting.FilterCriteria{}, []string{"1"})
	require.NoError(t, err)

	require.NoError(t, p.DeleteSavedList(ctx, "missing"))

	repo.EXPECT().DeleteSavedList(gomock.Any(), saved.ID).Return(nil)
	publisher.EXPECT().PublishListDeleted(gomock.Any(), saved.ID)
	require.NoError(t, p.DeleteSavedList(ctx, saved.ID))
	assert.Empty(t, p.ListSavedLists())

	require.NoError(t, p.DeleteSavedList(ctx, saved.ID))
}

func TestResumeSavedList(t *testing.T) {
	p := newTestProcessor(t, Config{})
	ctx := context.Background()

	criteria := targeting.FilterCriteria{WarrantyStatus: targeting.WarrantyExpiring}
	saved, err := p.SaveList(ctx, "Expiring", criteria, []string{"3", "9"})
	require.NoError(t, err)

	p.ToggleContact("1")
	resumed, err := p.ResumeSavedList(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, criteria, resumed.Filters)
	assert.Equal(t, []string{"3", "9"}, p.Selection().IDs)

	_, err = p.ResumeSavedList("missing")
	assert.ErrorIs(t, err, targeting.ErrListNotFound)
}

func TestCampaignTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := NewMockEventPublisher(ctrl)
	p := newTestProcessor(t, Config{Publisher: publisher})
	ctx := context.Background()

	publisher.EXPECT().PublishListSaved(gomock.Any(), gomock.Any())
	saved, err := p.SaveList(ctx, "Mixed", targeting.FilterCriteria{}, []string{"2", "gone", "1"})
	require.NoError(t, err)

	publisher.EXPECT().PublishCampaignTargetsRequested(gomock.Any(), saved.ID, []string{"2", "1"})
	targets, err := p.CampaignTargets(ctx, saved.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, targets.Count)
	assert.Equal(t, []string{"2", "1"}, targeting.ContactIDs(targets.Contacts))

	p.ToggleContact("3")
	publisher.EXPECT().PublishCampaignTargetsRequested(gomock.Any(), "", []string{"3"})
	targets, err = p.CampaignTargets(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, targets.Count)

	_, err = p.CampaignTargets(ctx, "", []string{"gone"})
	assert.ErrorIs(t, err, ErrNoTargets)

	_, err = p.CampaignTargets(ctx, "missing", nil)
	assert.ErrorIs(t, err, targeting.ErrListNotFound)
}

func TestPresets(t *testing.T) {
	presets, err := targeting.DefaultPresets()
	require.NoError(t, err)
	p := newTestProcessor(t, Config{Presets: presets})
	ctx := context.Background()

	assert.Equal(t, presets, p.Presets())

	preset, contacts, err := p.ApplyPreset(ctx, "warranty-expiring")
	require.NoError(t, err)
	assert.Equal(t, targeting.WarrantyExpiring, preset.Criteria.WarrantyStatus)
	assert.Equal(t, []string{"3"}, targeting.ContactIDs(contacts))

	_, contacts, err = p.ApplyPreset(ctx, "loyal-gold")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, targeting.ContactIDs(contacts))

	_, _, err = p.ApplyPreset(ctx, "unknown")
	assert.ErrorIs(t, err, ErrPresetNotFound)
}
