package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/galtspace/geo-explorer/internal/adapter"
	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/content"
	"github.com/galtspace/geo-explorer/internal/debounce"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store"
)

// Config holds the addresses of the singleton contracts and the tie-breaker delay
type Config struct {
	// SpaceGeoData is the registry of the main geo tokens. Tokens of any other contract
	// belong to private property registries.
	SpaceGeoData string
	// PropertyMarket is the market of the main tokens
	PropertyMarket string
	// PprFundFactory creates communities of private registry tokens
	PprFundFactory string
	// FirstOfferDelay is how long offer changes of one order settle before the first offer
	// is recomputed
	FirstOfferDelay time.Duration
	// MaxCascadeDepth bounds the follow-up effects of one event
	MaxCascadeDepth int
}

// Reconciler applies ledger events to the read model
//
//go:generate mockgen -source=reconciler.go -destination=../mocks/reconciler.go -package=mocks -mock_names=Reconciler=MockReconciler
type Reconciler interface {
	// Handle applies one event and every effect it cascades into. Handling the same event
	// twice leaves the read model unchanged.
	Handle(ctx context.Context, event domain.Event) error
	// Close cancels pending first-offer recomputes
	Close()
}

type handlerFunc func(ctx context.Context, event domain.Event) ([]Effect, error)

type reconciler struct {
	config      Config
	store       store.Store
	chain       chain.Reader
	content     content.Store
	clock       adapter.Clock
	dispatcher  *Dispatcher
	firstOffers *debounce.Registry
	handlers    map[domain.EventType]handlerFunc
}

// NewReconciler creates a reconciler writing to st and reading entity state through reader
func NewReconciler(cfg Config, st store.Store, reader chain.Reader, contentStore content.Store, clock adapter.Clock) Reconciler {
	cfg.SpaceGeoData = domain.NormalizeAddress(cfg.SpaceGeoData)
	cfg.PropertyMarket = domain.NormalizeAddress(cfg.PropertyMarket)
	cfg.PprFundFactory = domain.NormalizeAddress(cfg.PprFundFactory)

	r := &reconciler{
		config:      cfg,
		store:       st,
		chain:       reader,
		content:     contentStore,
		clock:       clock,
		dispatcher:  NewDispatcher(cfg.MaxCascadeDepth),
		firstOffers: debounce.New(clock, cfg.FirstOfferDelay),
	}

	r.handlers = map[domain.EventType]handlerFunc{
		domain.EventSetSpaceTokenContour:  r.handleTokenChanged,
		domain.EventSetSpaceTokenDataLink: r.handleTokenChanged,
		domain.EventSpaceTokenDataChanged: r.handleTokenChanged,

		domain.EventSaleOrderStatusChanged: r.handleSaleOrder,
		domain.EventSaleOfferBidChanged:    r.handleSaleOffer,
		domain.EventSaleOfferAskChanged:    r.handleSaleOffer,
		domain.EventSaleOfferStatusChanged: r.handleSaleOffer,

		domain.EventNewApplication: r.handleNewApplication,

		domain.EventNewPrivatePropertyRegistry:     r.handleRegistry,
		domain.EventPrivatePropertyRegistryUpdated: r.handleRegistry,
		domain.EventPprProposalNew:                 r.handlePprProposal,
		domain.EventPprProposalApproved:            r.handlePprProposal,
		domain.EventPprProposalExecuted:            r.handlePprProposal,
		domain.EventPprProposalRejected:            r.handlePprProposal,
		domain.EventPprBurnTimeoutSet:              r.handleBurnTimeout,
		domain.EventPprLegalAgreementSet:           r.handleLegalAgreement,

		domain.EventNewCommunity:                r.handleNewCommunity,
		domain.EventCommunityTokenMint:          r.handleCommunityTokenMint,
		domain.EventCommunityTokenBurn:          r.handleCommunityTokenMint,
		domain.EventCommunityTokenApproved:      r.handleCommunityTokenApproved,
		domain.EventCommunityReputationTransfer: r.handleReputationTransfer,
		domain.EventCommunityAddVoting:          r.handleAddVoting,
		domain.EventCommunityRemoveVoting:       r.handleRemoveVoting,
		domain.EventCommunityAddProposal:        r.handleCommunityProposal,
		domain.EventCommunityUpdateProposal:     r.handleCommunityProposal,
		domain.EventCommunityRuleChanged:        r.handleRuleChanged,
		domain.EventCommunityMeetingChanged:     r.handleMeetingChanged,
	}

	return r
}

func (r *reconciler) Handle(ctx context.Context, event domain.Event) error {
	h, ok := r.handlers[event.Type]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEventType, event.Type)
	}

	effects, err := h(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to handle %s at block %d: %w", event.Type, event.BlockNumber, err)
	}
	if err := r.dispatcher.Apply(ctx, effects); err != nil {
		return fmt.Errorf("failed to apply effects of %s at block %d: %w", event.Type, event.BlockNumber, err)
	}
	return nil
}

func (r *reconciler) Close() {
	r.firstOffers.Stop()
}

func (r *reconciler) isMainToken(contract string) bool {
	return domain.NormalizeAddress(contract) == r.config.SpaceGeoData
}

// blockPatch starts a patch stamped with the provenance of block
func blockPatch(block uint64) *patch.Patch {
	return patch.New().
		Set("created_at_block", block).
		Set("updated_at_block", block)
}

// resolveContent fetches the document behind a data link. Gateway failures leave the
// document empty so the raw link is still stored.
func (r *reconciler) resolveContent(ctx context.Context, link string) map[string]any {
	if !content.IsContentHash(link) {
		return nil
	}
	doc, err := r.content.Resolve(ctx, link)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to resolve content", zap.String("link", link), zap.Error(err))
		return nil
	}
	return doc
}

// describe returns the description of a data link: the description field of its document,
// the text stored under it, or the link itself when it is not content addressed
func (r *reconciler) describe(ctx context.Context, link string, doc map[string]any) string {
	if doc != nil {
		return content.LangValue(doc["description"])
	}
	if !content.IsContentHash(link) {
		return link
	}
	text, err := r.content.ResolveText(ctx, link)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to resolve description", zap.String("link", link), zap.Error(err))
		return ""
	}
	return text
}

func (r *reconciler) blockTime(ctx context.Context, block uint64) *time.Time {
	ts, err := r.chain.BlockTimestamp(ctx, block)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to get block timestamp", zap.Uint64("block", block), zap.Error(err))
		return nil
	}
	return &ts
}

// jsonColumn encodes v for a JSON column, NULL for nil values
func jsonColumn(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map) && rv.IsNil() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func unmarshalColumn(col datatypes.JSON) map[string]any {
	if len(col) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(col, &m); err != nil {
		return nil
	}
	return m
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asStrings(v any) []string {
	var out []string
	for _, item := range asList(v) {
		if s := content.LangValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asInt reads a document number that may be encoded as a JSON number or a string
func asInt(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(t)
		return &n
	case string:
		var n int
		if _, err := fmt.Sscanf(t, "%d", &n); err == nil {
			return &n
		}
	}
	return nil
}

// docText reads a plain or localized text field of a document
func docText(v any) string {
	return content.LangValue(v)
}
