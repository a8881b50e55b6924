package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"

	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"

	"golang.org/x/sync/errgroup"
)

// Repository defines the persistence operations required by TargetListProcessor
type Repository interface {
	LoadContacts(ctx context.Context) ([]targeting.Contact, error)
	PersistContacts(ctx context.Context, batch []targeting.Contact) error
	LoadSavedLists(ctx context.Context) ([]targeting.SavedList, error)
	PersistSavedList(ctx context.Context, list targeting.SavedList) error
	RenameSavedList(ctx context.Context, id, name string) error
	DeleteSavedList(ctx context.Context, id string) error
}

// EventPublisher announces target list changes to downstream campaign services
type EventPublisher interface {
	PublishListSaved(ctx context.Context, list targeting.SavedList)
	PublishListDeleted(ctx context.Context, listID string)
	PublishCampaignTargetsRequested(ctx context.Context, listID string, contactIDs []string)
}

var (
	ErrNoTargets      = errors.New("no contacts to target")
	ErrPresetNotFound = errors.New("preset not found")
)

// Config carries the optional collaborators of the processor. Without a Repository
// everything lives in memory only.
type Config struct {
	Repository Repository
	Publisher  EventPublisher
	Metrics    *observability.Metrics
	Presets    []targeting.Preset
}

type TargetListProcessor struct {
	contacts  *targeting.ContactStore
	selection *targeting.Selection
	lists     *targeting.SavedListManager
	presets   []targeting.Preset
	repo      Repository
	publisher EventPublisher
	metrics   *observability.Metrics
	logger    *observability.Logger
}

func New(contacts *targeting.ContactStore, cfg Config, logger *observability.Logger) *TargetListProcessor {
	return &TargetListProcessor{
		contacts:  contacts,
		selection: targeting.NewSelection(),
		lists:     targeting.NewSavedListManager(),
		presets:   cfg.Presets,
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// SelectionState is the current selection as shown next to the contact table.
type SelectionState struct {
	IDs               []string `json:"ids"`
	Count             int      `json:"count"`
	CanCreateCampaign bool     `json:"can_create_campaign"`
}

// CampaignTargets are the live contacts handed to campaign creation.
type CampaignTargets struct {
	ListID   string              `json:"list_id,omitempty"`
	Contacts []targeting.Contact `json:"contacts"`
	Count    int                 `json:"count"`
}

// Init loads contacts and saved lists from the repository.
func (p *TargetListProcessor) Init(ctx context.Context) error {
	if p.repo == nil {
		p.observeContacts()
		return nil
	}

	var loaded int
	var lists []targeting.SavedList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loaded, err = p.contacts.Reload(gctx, p.repo.LoadContacts)
		return err
	})
	g.Go(func() error {
		var err error
		lists, err = p.repo.LoadSavedLists(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		p.logger.Error(ctx, "failed to load target list state", err)
		return err
	}

	p.lists.Load(lists)
	p.observeContacts()
	p.observeLists()

	p.logger.Info(ctx, fmt.Sprintf("loaded %d contacts and %d saved lists", loaded, len(lists)))
	return nil
}

// Refresh reloads contacts from the repository, picking up imports done by other
// processes. Selection and saved lists are left alone.
func (p *TargetListProcessor) Refresh(ctx context.Context) (int, error) {
	if p.repo == nil {
		return p.contacts.Len(), nil
	}
	// The load runs under the store's writer lock so an import cannot merge between
	// the read and the swap.
	count, err := p.contacts.Reload(ctx, p.repo.LoadContacts)
	if err != nil {
		p.logger.Error(ctx, "failed to reload contacts", err)
		return 0, err
	}
	p.observeContacts()
	return count, nil
}

// Contacts returns every contact in insertion order.
func (p *TargetListProcessor) Contacts() []targeting.Contact {
	return p.contacts.All()
}

// AddContacts adds hand-entered contacts. A colliding id rejects the whole batch.
func (p *TargetListProcessor) AddContacts(ctx context.Context, contacts []targeting.Contact) error {
	var commit func(context.Context, []targeting.Contact) error
	if p.repo != nil {
		commit = p.repo.PersistContacts
	}
	if err := p.contacts.Insert(ctx, contacts, commit); err != nil {
		p.logger.InfoWithError(ctx, "rejected contact batch", err)
		return err
	}
	p.observeContacts()
	return nil
}

// FilterContacts validates criteria and returns the matching contacts.
func (p *TargetListProcessor) FilterContacts(ctx context.Context, criteria targeting.FilterCriteria) ([]targeting.Contact, error) {
	if err := criteria.Validate(); err != nil {
		p.logger.InfoWithError(ctx, "rejected filter criteria", err)
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.FilterEvaluations.Inc()
	}
	return targeting.Apply(p.contacts.All(), criteria), nil
}

// ToggleContact flips one contact's checkbox and reports whether it is now selected.
func (p *TargetListProcessor) ToggleContact(id string) bool {
	return p.selection.Toggle(id)
}

// SelectAllVisible replaces the selection with the contacts matching criteria.
func (p *TargetListProcessor) SelectAllVisible(ctx context.Context, criteria targeting.FilterCriteria) (SelectionState, error) {
	visible, err := p.FilterContacts(ctx, criteria)
	if err != nil {
		return SelectionState{}, err
	}
	p.selection.SelectAll(targeting.ContactIDs(visible))
	return p.Selection(), nil
}

func (p *TargetListProcessor) ClearSelection() {
	p.selection.Clear()
}

func (p *TargetListProcessor) Selection() SelectionState {
	ids := p.selection.IDs()
	return SelectionState{IDs: ids, Count: len(ids), CanCreateCampaign: len(ids) > 0}
}

// SaveList snapshots criteria and contactIDs under name. A nil contactIDs saves the
// current selection. The list is persisted before it becomes visible.
func (p *TargetListProcessor) SaveList(ctx context.Context, name string, criteria targeting.FilterCriteria, contactIDs []string) (targeting.SavedList, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "list_name", Value: name})

	if err := criteria.Validate(); err != nil {
		p.logger.InfoWithError(ctx, "rejected saved list criteria", err)
		return targeting.SavedList{}, err
	}
	if contactIDs == nil {
		contactIDs = p.selection.IDs()
	}

	list, err := p.lists.Prepare(name, criteria, contactIDs)
	if err != nil {
		p.logger.InfoWithError(ctx, "rejected saved list", err)
		return targeting.SavedList{}, err
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "list_id", Value: list.ID})

	if p.repo != nil {
		if err := p.repo.PersistSavedList(ctx, list); err != nil {
			p.logger.Error(ctx, "failed to persist saved list", err)
			return targeting.SavedList{}, err
		}
	}
	saved, err := p.lists.Commit(list)
	if err != nil {
		// Another save claimed the name between Prepare and Commit.
		if p.repo != nil {
			if derr := p.repo.DeleteSavedList(ctx, list.ID); derr != nil {
				p.logger.Error(ctx, "failed to roll back saved list", derr)
			}
		}
		return targeting.SavedList{}, err
	}

	p.observeLists()
	if p.publisher != nil {
		p.publisher.PublishListSaved(ctx, saved)
	}
	p.logger.Info(ctx, fmt.Sprintf("saved list with %d contacts", len(saved.ContactIDs)))
	return saved, nil
}

func (p *TargetListProcessor) ListSavedLists() []targeting.SavedList {
	return p.lists.List()
}

func (p *TargetListProcessor) GetSavedList(id string) (targeting.SavedList, error) {
	list, ok := p.lists.Get(id)
	if !ok {
		return targeting.SavedList{}, targeting.ErrListNotFound
	}
	return list, nil
}

// RenameSavedList renames a list under the same name rules as SaveList.
func (p *TargetListProcessor) RenameSavedList(ctx context.Context, id, name string) (targeting.SavedList, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "list_id", Value: id},
		observability.Field{Key: "list_name", Value: name},
	)

	if err := p.lists.CheckRename(id, name); err != nil {
		p.logger.InfoWithError(ctx, "rejected rename", err)
		return targeting.SavedList{}, err
	}
	if p.repo != nil {
		if err := p.repo.RenameSavedList(ctx, id, name); err != nil {
			p.logger.Error(ctx, "failed to persist rename", err)
			return targeting.SavedList{}, err
		}
	}
	return p.lists.Rename(id, name)
}

// DeleteSavedList removes a list. Unknown ids are a no-op.
func (p *TargetListProcessor) DeleteSavedList(ctx context.Context, id string) error {
	ctx = observability.WithFields(ctx, observability.Field{Key: "list_id", Value: id})

	if _, ok := p.lists.Get(id); !ok {
		return nil
	}
	if p.repo != nil {
		if err := p.repo.DeleteSavedList(ctx, id); err != nil {
			p.logger.Error(ctx, "failed to delete saved list", err)
			return err
		}
	}
	if !p.lists.Delete(id) {
		return nil
	}

	p.observeLists()
	if p.publisher != nil {
		p.publisher.PublishListDeleted(ctx, id)
	}
	return nil
}

// ResumeSavedList restores a list's snapshot as the current selection and returns the
// list so the caller can restore its filters.
func (p *TargetListProcessor) ResumeSavedList(id string) (targeting.SavedList, error) {
	list, err := p.GetSavedList(id)
	if err != nil {
		return targeting.SavedList{}, err
	}
	p.selection.Set(list.ContactIDs)
	return list, nil
}

// CampaignTargets resolves the contacts a campaign would call: those of a saved list
// when listID is set, otherwise contactIDs, otherwise the current selection. Ids that
// no longer exist are skipped.
func (p *TargetListProcessor) CampaignTargets(ctx context.Context, listID string, contactIDs []string) (CampaignTargets, error) {
	ids := contactIDs
	if listID != "" {
		list, err := p.GetSavedList(listID)
		if err != nil {
			return CampaignTargets{}, err
		}
		ids = list.ContactIDs
	} else if ids == nil {
		ids = p.selection.IDs()
	}

	contacts := p.contacts.Lookup(ids)
	if len(contacts) == 0 {
		return CampaignTargets{}, ErrNoTargets
	}

	if p.publisher != nil {
		p.publisher.PublishCampaignTargetsRequested(ctx, listID, targeting.ContactIDs(contacts))
	}
	return CampaignTargets{ListID: listID, Contacts: contacts, Count: len(contacts)}, nil
}

// Presets returns the quick filters offered above the contact table.
func (p *TargetListProcessor) Presets() []targeting.Preset {
	out := make([]targeting.Preset, len(p.presets))
	for i, preset := range p.presets {
		out[i] = preset
		out[i].Criteria = preset.Criteria.Clone()
	}
	return out
}

// ApplyPreset filters contacts with the preset named key.
func (p *TargetListProcessor) ApplyPreset(ctx context.Context, key string) (targeting.Preset, []targeting.Contact, error) {
	preset, ok := targeting.FindPreset(p.presets, key)
	if !ok {
		return targeting.Preset{}, nil, ErrPresetNotFound
	}
	preset.Criteria = preset.Criteria.Clone()
	contacts, err := p.FilterContacts(ctx, preset.Criteria)
	if err != nil {
		return targeting.Preset{}, nil, err
	}
	return preset, contacts, nil
}

func (p *TargetListProcessor) observeContacts() {
	if p.metrics != nil {
		p.metrics.ContactsLoaded.Set(float64(p.contacts.Len()))
	}
}

func (p *TargetListProcessor) observeLists() {
	if p.metrics != nil {
		p.metrics.SavedLists.Set(float64(p.lists.Len()))
	}
}
