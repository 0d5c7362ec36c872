package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/store"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// MeetingStatus derives the status shown for a meeting. A meeting with any executed proposal is
// done; otherwise its dates decide.
func MeetingStatus(active bool, executed int64, start, end *time.Time, now time.Time) string {
	switch {
	case !active:
		return schema.MeetingStatusDeactivated
	case executed > 0:
		return schema.MeetingStatusDone
	case end != nil && now.After(*end):
		return schema.MeetingStatusFailed
	case start != nil && now.After(*start):
		return schema.MeetingStatusInProcess
	default:
		return schema.MeetingStatusPlanned
	}
}

func (r *reconciler) handleMeetingChanged(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}
	meetingID := event.String("id", "meetingId")
	if !isSet(meetingID) {
		return nil, nil
	}
	return []Effect{r.refreshMeeting(community.Address, meetingID, event.BlockNumber)}, nil
}

func (r *reconciler) refreshMeeting(community, meetingID string, block uint64) Effect {
	return &RefreshMeeting{r: r, Community: community, MeetingID: meetingID, Block: block}
}

// RefreshMeeting re-reads a meeting and recomputes its counters, dates and status from the
// proposals and rules stored for it
type RefreshMeeting struct {
	r         *reconciler
	Community string
	MeetingID string
	Block     uint64
}

func (e *RefreshMeeting) Key() string {
	return "meeting:" + domain.NormalizeAddress(e.Community) + ":" + e.MeetingID
}

func (e *RefreshMeeting) Apply(ctx context.Context) ([]Effect, error) {
	r := e.r
	community, err := r.store.GetCommunity(ctx, e.Community)
	if err != nil || community == nil {
		return nil, err
	}
	meeting, err := r.chain.Meeting(ctx, communityRef(community), e.MeetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to read meeting %s: %w", e.MeetingID, err)
	}
	if meeting == nil {
		return nil, nil
	}

	doc := r.resolveContent(ctx, meeting.DataLink)
	description := meeting.Description
	if description == "" && doc != nil {
		description = r.describe(ctx, docText(doc["description"]), nil)
	}

	byMeeting := store.ProposalFilter{CommunityAddress: community.Address, MeetingID: e.MeetingID}

	end := meeting.EndOn
	for _, status := range []string{schema.ProposalStatusActive, schema.ProposalStatusExecuted} {
		f := byMeeting
		f.Statuses, f.Limit = []string{status}, 1
		last, err := r.store.FindCommunityProposals(ctx, f)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 && last[0].TimeoutAt != nil {
			t := time.Unix(int64(*last[0].TimeoutAt), 0).UTC()
			end = &t
			break
		}
	}

	rulesCount, err := r.store.CountCommunityRules(ctx, community.Address, e.MeetingID)
	if err != nil {
		return nil, err
	}
	f := byMeeting
	f.Statuses = []string{schema.ProposalStatusExecuted}
	executed, err := r.store.CountCommunityProposals(ctx, f)
	if err != nil {
		return nil, err
	}

	f = byMeeting
	f.Limit = 1
	latest, err := r.store.FindCommunityProposals(ctx, f)
	if err != nil {
		return nil, err
	}
	var lastTimeout *uint64
	if len(latest) > 0 {
		lastTimeout = latest[0].TimeoutAt
	}

	localToCreate := 0
	if planned := asList(doc["proposals"]); len(planned) > int(rulesCount) {
		localToCreate = len(planned) - int(rulesCount)
	}

	p := stamp(e.Block).
		Set("community_id", community.ID).
		Set("creator_address", optString(domain.NormalizeAddress(meeting.Creator))).
		Set("is_active", meeting.IsActive).
		Set("status", MeetingStatus(meeting.IsActive, executed, meeting.StartOn, end, r.clock.Now())).
		Set("start_date_time", meeting.StartOn).
		Set("end_date_time", end).
		Set("rules_count", int(rulesCount)).
		Set("local_proposals_to_create_count", localToCreate).
		Set("executed_proposals_count", int(executed)).
		Set("last_proposal_timeout_at", lastTimeout).
		Set("description", optString(description)).
		Set("data_link", optString(meeting.DataLink)).
		Set("data_json", jsonColumn(doc))
	if _, err := r.store.UpsertCommunityMeeting(ctx, community.Address, e.MeetingID, p); err != nil {
		return nil, err
	}
	return []Effect{r.refreshCommunity(community.Address, community.IsPpr, e.Block)}, nil
}

// insideMeetingID is the 1-based position of the proposal with uniqID in the meeting document,
// nil when the meeting or the proposal is unknown
func (r *reconciler) insideMeetingID(ctx context.Context, community, meetingID, uniqID string) (*int, error) {
	if !isSet(meetingID) || uniqID == "" {
		return nil, nil
	}
	meeting, err := r.store.GetCommunityMeeting(ctx, community, meetingID)
	if err != nil || meeting == nil {
		return nil, err
	}
	for i, item := range asList(unmarshalColumn(meeting.DataJSON)["proposals"]) {
		if docText(asMap(item)["uniqId"]) == uniqID {
			n := i + 1
			return &n, nil
		}
	}
	return nil, nil
}

// isSet reports whether an on-chain id refers to something; zero ids mean none
func isSet(id string) bool {
	return id != "" && id != "0"
}
