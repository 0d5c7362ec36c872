package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/geohash"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultLimit = 20
	MaxLimit     = 1000
)

// Query pages and sorts a search
type Query struct {
	Limit   int
	Offset  int
	SortBy  string
	SortDir string
}

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	}
	return q.Limit
}

func (q Query) offset() int {
	if q.Offset < 0 {
		return 0
	}
	return q.Offset
}

// order resolves SortBy against the columns a table allows sorting by.
// Unknown columns fall back to def.
func (q Query) order(sortable []string, def string) string {
	col := def
	for _, c := range sortable {
		if strings.EqualFold(c, q.SortBy) {
			col = c
			break
		}
	}
	dir := "ASC"
	if strings.EqualFold(q.SortDir, SortDesc) {
		dir = "DESC"
	}
	return col + " " + dir + ", id ASC"
}

// Predicate narrows a query
type Predicate func(*gorm.DB) *gorm.DB

// Eq matches col equal to value
func Eq(col string, value any) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where(col+" = ?", value)
	}
}

// In matches col against any of values. An empty list matches nothing.
func In[T any](col string, values []T) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		if len(values) == 0 {
			return q.Where("1 = 0")
		}
		return q.Where(col+" IN ?", values)
	}
}

// Range matches min <= col <= max. A nil bound is open.
func Range[T any](col string, min, max *T) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		if min != nil {
			q = q.Where(col+" >= ?", *min)
		}
		if max != nil {
			q = q.Where(col+" <= ?", *max)
		}
		return q
	}
}

// Prefix matches col starting with prefix
func Prefix(col, prefix string) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where(col+` LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}
}

// Membership describes a join table holding a multi-valued attribute
type Membership struct {
	Table    string
	OwnerCol string
	ValueCol string
	// KindCol and Kind narrow tables that hold several attributes
	KindCol string
	Kind    string
}

// HasAll matches rows whose id owns every one of values in the membership table
func HasAll(m Membership, values []string) Predicate {
	return func(q *gorm.DB) *gorm.DB {
		distinct := dedupStrings(values)
		if len(distinct) == 0 {
			return q
		}
		sub := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN ?", m.OwnerCol, m.Table, m.ValueCol)
		args := []any{distinct}
		if m.KindCol != "" {
			sub += fmt.Sprintf(" AND %s = ?", m.KindCol)
			args = append(args, m.Kind)
		}
		sub += fmt.Sprintf(" GROUP BY %s HAVING COUNT(DISTINCT %s) = ?", m.OwnerCol, m.ValueCol)
		args = append(args, len(distinct))
		return q.Where("id IN ("+sub+")", args...)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func dedupStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// search counts the rows matching preds and returns one page of them
func search[T any](q *gorm.DB, model tabler, query Query, order string, preds []Predicate) ([]T, int64, error) {
	q = q.Model(model)
	for _, p := range preds {
		q = p(q)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", model.TableName(), err)
	}

	rows := []T{}
	if total == 0 {
		return rows, 0, nil
	}

	err := q.Order(order).Limit(query.limit()).Offset(query.offset()).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search %s: %w", model.TableName(), err)
	}
	return rows, total, nil
}

func optEq[T comparable](preds []Predicate, col string, v *T) []Predicate {
	if v != nil {
		preds = append(preds, Eq(col, *v))
	}
	return preds
}

func strEq(preds []Predicate, col, v string) []Predicate {
	if v != "" {
		preds = append(preds, Eq(col, v))
	}
	return preds
}

func addrEq(preds []Predicate, col, v string) []Predicate {
	return strEq(preds, col, domain.NormalizeAddress(v))
}

// tokensUnderGeohashes is a subquery of the ids of tokens with a contour cell under any of prefixes
func tokensUnderGeohashes(prefixes []string) (string, []any, error) {
	var conds []string
	var args []any
	for _, p := range prefixes {
		p = geohash.Truncate(p)
		if err := geohash.Validate(p); err != nil {
			return "", nil, err
		}
		conds = append(conds, "cc.geohash LIKE ?")
		args = append(args, p+"%")
	}
	sub := "SELECT gt.id FROM geo_tokens gt JOIN contour_cells cc " +
		"ON cc.token_id = gt.token_id AND cc.contract_address = gt.contract_address " +
		"WHERE " + strings.Join(conds, " OR ")
	return sub, args, nil
}

// TokenFilter selects geo tokens. Zero fields are ignored.
type TokenFilter struct {
	Query
	ContractAddress string
	TokenIDs        []string
	Owner           string
	TokenType       string
	Types           []string
	Subtypes        []string
	Level           string
	IsPpr           *bool
	// HumanAddress matches the start of the postal address
	HumanAddress string
	// Features must all be present on the token
	Features []string
	// Geohashes selects tokens with a contour cell under any prefix
	Geohashes    []string
	AreaMin      *float64
	AreaMax      *float64
	BedroomsMin  *int
	BedroomsMax  *int
	BathroomsMin *int
	BathroomsMax *int
}

var tokenSortable = []string{"id", "token_id", "area", "bedrooms_count", "bathrooms_count", "year_built", "created_at_block", "updated_at_block"}

var tokenFeatures = Membership{Table: "geo_token_features", OwnerCol: "geo_token_id", ValueCol: "feature"}

func (f TokenFilter) predicates() ([]Predicate, error) {
	var preds []Predicate
	preds = addrEq(preds, "contract_address", f.ContractAddress)
	preds = addrEq(preds, "owner", f.Owner)
	preds = strEq(preds, "token_type", f.TokenType)
	preds = strEq(preds, "level", f.Level)
	preds = optEq(preds, "is_ppr", f.IsPpr)
	if f.HumanAddress != "" {
		preds = append(preds, Prefix("human_address", f.HumanAddress))
	}
	if len(f.TokenIDs) > 0 {
		preds = append(preds, In("token_id", f.TokenIDs))
	}
	if len(f.Types) > 0 {
		preds = append(preds, In("type", f.Types))
	}
	if len(f.Subtypes) > 0 {
		preds = append(preds, In("subtype", f.Subtypes))
	}
	if len(f.Features) > 0 {
		preds = append(preds, HasAll(tokenFeatures, f.Features))
	}
	if len(f.Geohashes) > 0 {
		sub, args, err := tokensUnderGeohashes(f.Geohashes)
		if err != nil {
			return nil, err
		}
		preds = append(preds, func(q *gorm.DB) *gorm.DB {
			return q.Where("id IN ("+sub+")", args...)
		})
	}
	preds = append(preds,
		Range("area", f.AreaMin, f.AreaMax),
		Range("bedrooms_count", f.BedroomsMin, f.BedroomsMax),
		Range("bathrooms_count", f.BathroomsMin, f.BathroomsMax),
	)
	return preds, nil
}

// SaleOrderFilter selects sale orders. Zero fields are ignored.
type SaleOrderFilter struct {
	Query
	ContractAddress string
	StatusName      string
	Currency        string
	CurrencyAddress string
	Seller          string
	IsPpr           *bool
	// Features and Types must all be present among the order tokens
	Features []string
	Types    []string
	// Geohashes selects orders with a token under any prefix
	Geohashes       []string
	AskMin          *float64
	AskMax          *float64
	LandAreaMin     *float64
	LandAreaMax     *float64
	BuildingAreaMin *float64
	BuildingAreaMax *float64
	BedroomsMin     *int
	BedroomsMax     *int
	BathroomsMin    *int
	BathroomsMax    *int
}

var orderSortable = []string{"id", "ask", "sum_land_area", "sum_building_area", "sum_bedrooms_count", "sum_bathrooms_count", "created_at_block", "updated_at_block"}

var (
	orderFeatures = Membership{Table: "sale_order_features", OwnerCol: "sale_order_id", ValueCol: "value", KindCol: "kind", Kind: "feature"}
	orderTypes    = Membership{Table: "sale_order_features", OwnerCol: "sale_order_id", ValueCol: "value", KindCol: "kind", Kind: "type"}
)

func (f SaleOrderFilter) predicates() ([]Predicate, error) {
	var preds []Predicate
	preds = addrEq(preds, "contract_address", f.ContractAddress)
	preds = strEq(preds, "status_name", f.StatusName)
	preds = strEq(preds, "currency", f.Currency)
	preds = addrEq(preds, "currency_address", f.CurrencyAddress)
	preds = addrEq(preds, "seller", f.Seller)
	preds = optEq(preds, "is_ppr", f.IsPpr)
	if len(f.Features) > 0 {
		preds = append(preds, HasAll(orderFeatures, f.Features))
	}
	if len(f.Types) > 0 {
		preds = append(preds, HasAll(orderTypes, f.Types))
	}
	if len(f.Geohashes) > 0 {
		sub, args, err := tokensUnderGeohashes(f.Geohashes)
		if err != nil {
			return nil, err
		}
		preds = append(preds, func(q *gorm.DB) *gorm.DB {
			return q.Where("id IN (SELECT sale_order_id FROM sale_order_tokens WHERE geo_token_id IN ("+sub+"))", args...)
		})
	}
	preds = append(preds,
		Range("ask", f.AskMin, f.AskMax),
		Range("sum_land_area", f.LandAreaMin, f.LandAreaMax),
		Range("sum_building_area", f.BuildingAreaMin, f.BuildingAreaMax),
		Range("sum_bedrooms_count", f.BedroomsMin, f.BedroomsMax),
		Range("sum_bathrooms_count", f.BathroomsMin, f.BathroomsMax),
	)
	return preds, nil
}

// SaleOfferFilter selects sale offers. Zero fields are ignored.
type SaleOfferFilter struct {
	Query
	ContractAddress string
	OrderID         string
	Buyer           string
	Seller          string
	Status          string
	IsFirstOffer    *bool
	BidMin          *float64
	BidMax          *float64
}

var offerSortable = []string{"id", "ask", "bid", "created_offer_at", "last_offer_ask_at", "last_offer_bid_at", "created_at_block", "updated_at_block"}

func (f SaleOfferFilter) predicates() []Predicate {
	var preds []Predicate
	preds = addrEq(preds, "contract_address", f.ContractAddress)
	preds = strEq(preds, "order_id", f.OrderID)
	preds = addrEq(preds, "buyer", f.Buyer)
	preds = addrEq(preds, "seller", f.Seller)
	preds = strEq(preds, "status", f.Status)
	preds = optEq(preds, "is_first_offer", f.IsFirstOffer)
	return append(preds, Range("bid", f.BidMin, f.BidMax))
}

// ApplicationFilter selects applications. Zero fields are ignored.
type ApplicationFilter struct {
	Query
	ContractAddress  string
	ApplicantAddress string
	StatusName       string
	ContractType     string
	FeeCurrency      string
	// Oracles and AvailableRoles must all be present on the application
	Oracles        []string
	AvailableRoles []string
}

var applicationSortable = []string{"id", "fee_amount", "total_oracles_reward", "created_at_block", "updated_at_block"}

var (
	applicationOracles   = Membership{Table: "application_roles", OwnerCol: "application_id", ValueCol: "value", KindCol: "kind", Kind: "oracle"}
	applicationAvailable = Membership{Table: "application_roles", OwnerCol: "application_id", ValueCol: "value", KindCol: "kind", Kind: "available"}
)

func (f ApplicationFilter) predicates() []Predicate {
	var preds []Predicate
	preds = addrEq(preds, "contract_address", f.ContractAddress)
	preds = addrEq(preds, "applicant_address", f.ApplicantAddress)
	preds = strEq(preds, "status_name", f.StatusName)
	preds = strEq(preds, "contract_type", f.ContractType)
	preds = strEq(preds, "fee_currency", f.FeeCurrency)
	if len(f.Oracles) > 0 {
		oracles := make([]string, len(f.Oracles))
		for i, o := range f.Oracles {
			oracles[i] = domain.NormalizeAddress(o)
		}
		preds = append(preds, HasAll(applicationOracles, oracles))
	}
	if len(f.AvailableRoles) > 0 {
		preds = append(preds, HasAll(applicationAvailable, f.AvailableRoles))
	}
	return preds
}

// CommunityFilter selects communities. Zero fields are ignored.
type CommunityFilter struct {
	Query
	Addresses []string
	IsPpr     *bool
	IsPrivate *bool
	// Member selects communities where the address holds reputation
	Member         string
	TokensCountMin *int
	TokensCountMax *int
}

var communitySortable = []string{"id", "tokens_count", "active_fund_rules_count", "space_token_owners_count", "reputation_total_supply", "created_at_block", "updated_at_block"}

func (f CommunityFilter) predicates() []Predicate {
	var preds []Predicate
	preds = optEq(preds, "is_ppr", f.IsPpr)
	preds = optEq(preds, "is_private", f.IsPrivate)
	if len(f.Addresses) > 0 {
		addresses := make([]string, len(f.Addresses))
		for i, a := range f.Addresses {
			addresses[i] = domain.NormalizeAddress(a)
		}
		preds = append(preds, In("address", addresses))
	}
	if f.Member != "" {
		member := domain.NormalizeAddress(f.Member)
		preds = append(preds, func(q *gorm.DB) *gorm.DB {
			return q.Where("address IN (SELECT community_address FROM community_members WHERE address = ?)", member)
		})
	}
	return append(preds, Range("tokens_count", f.TokensCountMin, f.TokensCountMax))
}
