package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	mmgeohash "github.com/mmcloughlin/geohash"
	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/content"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/geohash"
	"github.com/galtspace/geo-explorer/internal/logger"
)

// errNoCode is returned by call when the target has no code or returned nothing
var errNoCode = errors.New("empty call result")

var (
	tokenTypes         = []string{"", "land", "building", "room"}
	areaSources        = []string{"user", "contract"}
	saleOrderStatuses  = []string{"inactive", "active", "closed", "cancelled"}
	saleOfferStatuses  = []string{"inactive", "active", "closed", "cancelled"}
	pprProposalStatus  = []string{"", chain.PprProposalPending, chain.PprProposalApproved, chain.PprProposalExecuted, chain.PprProposalRejected}
	communityProposals = []string{chain.ProposalNull, chain.ProposalActive, chain.ProposalExecuted}
	applicationStatus  = []string{
		"not_exists", "partially_submitted", "contour_verification", "cancelled", "cv_rejected",
		"pending", "approved", "rejected", "reverted", "partially_resubmitted", "stored", "closed",
	}
	oracleStatuses = []string{"not_exists", "pending", "locked", "approved", "rejected", "reverted"}

	burnSelector = hexutil.Encode(crypto.Keccak256([]byte("burn(uint256)"))[:4])

	trailingDigits = regexp.MustCompile(`\d+$`)
)

func enumName(names []string, i uint64) string {
	if i >= uint64(len(names)) {
		return strconv.FormatUint(i, 10)
	}
	return names[i]
}

func bigID(id string) *big.Int {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

func bytes32(h string) [32]byte {
	var out [32]byte
	b, err := hexutil.Decode(h)
	if err != nil {
		copy(out[:], h)
		return out
	}
	copy(out[:], b)
	return out
}

func unixTime(sec uint64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(int64(sec), 0).UTC() //nolint:gosec,G115
	return &t
}

func isRevert(err error) bool {
	return err != nil && (errors.Is(err, errNoCode) || strings.Contains(err.Error(), "execution reverted"))
}

// call packs method of the contract ABI, calls it on address and decodes the outputs into named
// values. Unnamed outputs are keyed by position; a single tuple output is flattened.
func (c *ethereumClient) call(ctx context.Context, contract, address, method string, args ...any) (values, error) {
	parsed, ok := c.contracts.ABI(contract)
	if !ok {
		return nil, fmt.Errorf("no ABI configured for %s", contract)
	}
	m, ok := parsed.Methods[method]
	if !ok {
		return nil, fmt.Errorf("ABI of %s has no method %s", contract, method)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", contract, method, err)
	}

	to := common.HexToAddress(address)
	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s.%s on %s: %w", contract, method, address, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s on %s: %w", contract, method, address, errNoCode)
	}

	res, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s.%s: %w", contract, method, err)
	}

	v := make(values, len(res))
	for i, o := range m.Outputs {
		name := argName(o.Name)
		if name == "" {
			name = strconv.Itoa(i)
		}
		v[name] = normalizeValue(res[i])
	}
	if len(res) == 1 {
		for _, x := range v {
			if tuple, ok := x.(map[string]any); ok {
				for k, item := range tuple {
					v[k] = item
				}
			}
		}
	}
	return v, nil
}

// callEach calls every no-argument getter and keys its first output by the method name
func (c *ethereumClient) callEach(ctx context.Context, contract, address string, methods ...string) (values, error) {
	v := make(values, len(methods))
	for _, method := range methods {
		out, err := c.call(ctx, contract, address, method)
		if err != nil {
			return nil, err
		}
		if x, ok := out.get("0"); ok {
			v[method] = x
		} else {
			for _, x := range out {
				v[method] = x
				break
			}
		}
	}
	return v, nil
}

func (c *ethereumClient) addressOf(name string) string {
	addr, ok := c.contracts.Address(name)
	if !ok {
		return ""
	}
	return strings.ToLower(addr.Hex())
}

// SpaceTokenData reads token details from the geo data registry, or from the token contract
// itself for private registry tokens
func (c *ethereumClient) SpaceTokenData(ctx context.Context, key domain.TokenKey) (*chain.SpaceTokenData, error) {
	contract, address := ContractPprToken, key.ContractAddress
	if c.contracts.IsAddress(ContractSpaceGeoData, key.ContractAddress) {
		contract = ContractSpaceGeoData
	}

	v, err := c.call(ctx, contract, address, "getDetails", bigID(key.TokenID))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}

	contour := make([]string, 0)
	for _, n := range v.strs("contour") {
		contour = append(contour, geohash5ToString(bigID(n)))
	}
	heights := make([]float64, 0)
	for _, h := range v.strs("heights") {
		heights = append(heights, weiToEther(bigID(h)))
	}

	humanAddress := v.str("humanAddress")
	return &chain.SpaceTokenData{
		TokenType:        enumName(tokenTypes, v.num("tokenType", "spaceTokenType")),
		Contour:          contour,
		Heights:          heights,
		HighestPoint:     v.ether("highestPoint"),
		Area:             v.ether("area"),
		AreaSource:       enumName(areaSources, v.num("areaSource")),
		HumanAddress:     humanAddress,
		DataLink:         v.str("dataLink"),
		LedgerIdentifier: v.text("ledgerIdentifier"),
		Level:            humanAddressField(humanAddress, "floor"),
	}, nil
}

// SpaceTokenOwner returns "" for burned tokens
func (c *ethereumClient) SpaceTokenOwner(ctx context.Context, key domain.TokenKey) (string, error) {
	contract, address := ContractPprToken, key.ContractAddress
	if c.contracts.IsAddress(ContractSpaceGeoData, key.ContractAddress) {
		contract, address = ContractSpaceToken, c.addressOf(ContractSpaceToken)
	}

	v, err := c.call(ctx, contract, address, "ownerOf", bigID(key.TokenID))
	if err != nil {
		if isRevert(err) {
			return "", nil
		}
		return "", err
	}
	return v.addr("0", "owner"), nil
}

// LockerInfo returns nil when owner is not a locker contract
func (c *ethereumClient) LockerInfo(ctx context.Context, owner string) (*chain.LockerInfo, error) {
	if _, ok := c.contracts.ABI(ContractSpaceLocker); !ok || owner == "" {
		return nil, nil
	}

	v, err := c.call(ctx, ContractSpaceLocker, owner, "getLockerInfo")
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		// plain accounts answer with garbage the ABI cannot unpack
		logger.DebugCtx(ctx, "Owner is not a locker", zap.String("owner", owner), zap.Error(err))
		return nil, nil
	}
	return &chain.LockerInfo{
		Address: domain.NormalizeAddress(owner),
		Type:    v.text("lockerType"),
		Owners:  v.addrs("owners"),
	}, nil
}

func (c *ethereumClient) SaleOrder(ctx context.Context, market, orderID string) (*chain.SaleOrder, error) {
	v, err := c.call(ctx, ContractPropertyMarket, market, "saleOrders", bigID(orderID))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	if v.addr("seller") == "" {
		return nil, nil
	}

	details, err := c.call(ctx, ContractPropertyMarket, market, "getSaleOrderDetails", bigID(orderID))
	if err != nil {
		return nil, err
	}

	currency := chain.CurrencyETH
	if v.num("escrowCurrency") == 1 {
		currency = chain.CurrencyERC20
	}
	tokenContract := details.addr("propertyToken")
	if tokenContract == "" {
		tokenContract = c.addressOf(ContractSpaceGeoData)
	}

	order := &chain.SaleOrder{
		OrderID:       orderID,
		Seller:        v.addr("seller"),
		Operator:      v.addr("operator"),
		LastBuyer:     v.addr("lastBuyer"),
		Ask:           v.ether("ask"),
		Status:        enumName(saleOrderStatuses, v.num("status")),
		Currency:      currency,
		TokenContract: tokenContract,
		TokenIDs:      details.strs("spaceTokenIds", "tokenIds"),
		DataLink:      details.str("dataAddress", "dataLink"),
	}
	if currency == chain.CurrencyERC20 {
		order.CurrencyAddress = v.addr("tokenContract")
	}
	if t := unixTime(v.num("createdAt")); t != nil {
		order.CreatedAt = *t
	}
	return order, nil
}

func (c *ethereumClient) SaleOffer(ctx context.Context, market, orderID, buyer string) (*chain.SaleOffer, error) {
	v, err := c.call(ctx, ContractPropertyMarket, market, "saleOffers", bigID(orderID), common.HexToAddress(buyer))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	if v.num("status") == 0 && v.num("createdAt") == 0 {
		return nil, nil
	}
	return &chain.SaleOffer{
		OrderID:        orderID,
		Buyer:          domain.NormalizeAddress(buyer),
		Ask:            v.ether("ask"),
		Bid:            v.ether("bid"),
		Status:         enumName(saleOfferStatuses, v.num("status")),
		LastOfferAskAt: unixTime(v.num("lastAskAt")),
		LastOfferBidAt: unixTime(v.num("lastBidAt")),
		CreatedAt:      unixTime(v.num("createdAt")),
	}, nil
}

func (c *ethereumClient) ContractSymbol(ctx context.Context, address string) (string, error) {
	v, err := c.call(ctx, ContractERC20, address, "symbol")
	if err != nil {
		return "", err
	}
	return v.str("0"), nil
}

func (c *ethereumClient) Application(ctx context.Context, contract, applicationID string) (*chain.Application, error) {
	id := bigID(applicationID)
	v, err := c.call(ctx, ContractNewPropertyManager, contract, "getApplication", id)
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	if v.addr("applicant") == "" {
		return nil, nil
	}

	rewards, err := c.call(ctx, ContractNewPropertyManager, contract, "getApplicationRewards", id)
	if err != nil {
		return nil, err
	}
	details, err := c.call(ctx, ContractNewPropertyManager, contract, "getApplicationDetails", id)
	if err != nil {
		return nil, err
	}

	app := &chain.Application{
		ApplicationID:   applicationID,
		Applicant:       v.addr("applicant"),
		CredentialsHash: v.str("credentialsHash"),
		Status:          enumName(applicationStatus, v.num("status")),
		ContractType:    ContractNewPropertyManager,
		FeeCurrency:     chain.CurrencyETH,
		FeeAmount:       rewards.ether("totalPaidFee"),
		TokenID:         v.str("spaceTokenId", "tokenId"),
		DataLink:        details.str("dataLink"),
	}
	if rewards.num("currency") == 1 {
		app.FeeCurrency = chain.CurrencyERC20
		app.FeeCurrencyAddress = rewards.addr("currencyAddress", "tokenContract")
	}

	for _, role := range v.strs("assignedRoles") {
		name := hexToString(role)
		app.Roles = append(app.Roles, name)

		oracle, err := c.call(ctx, ContractNewPropertyManager, contract, "getApplicationOracle", id, bytes32(role))
		if err != nil {
			return nil, err
		}
		if addr := oracle.addr("oracle"); addr != "" {
			app.Oracles = append(app.Oracles, addr)
		}
		if enumName(oracleStatuses, oracle.num("status")) == "pending" {
			app.AvailableRoles = append(app.AvailableRoles, name)
		}
		app.TotalOraclesReward += oracle.ether("reward")
	}
	return app, nil
}

func (c *ethereumClient) Registry(ctx context.Context, address string) (*chain.Registry, error) {
	v, err := c.callEach(ctx, ContractPprToken, address,
		"owner", "controller", "minter", "name", "symbol", "contractDataLink", "totalSupply")
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}

	reg := &chain.Registry{
		Address:     domain.NormalizeAddress(address),
		Owner:       v.addr("owner"),
		Controller:  v.addr("controller"),
		Minter:      v.addr("minter"),
		Name:        v.str("name"),
		Symbol:      v.str("symbol"),
		DataLink:    v.str("contractDataLink"),
		TotalSupply: v.num("totalSupply"),
	}

	if reg.Controller != "" {
		ctrl, err := c.callEach(ctx, ContractPprController, reg.Controller,
			"owner", "geoDataManager", "feeManager", "burner", "contourVerificationManager", "defaultBurnTimeoutDuration")
		if err != nil {
			return nil, err
		}
		reg.ControllerOwner = ctrl.addr("owner")
		reg.GeoDataManager = ctrl.addr("geoDataManager")
		reg.FeeManager = ctrl.addr("feeManager")
		reg.Burner = ctrl.addr("burner")
		reg.ContourVerification = ctrl.addr("contourVerificationManager")
		reg.DefaultBurnTimeout = ctrl.num("defaultBurnTimeoutDuration")
	}
	if reg.ContourVerification != "" {
		cv, err := c.call(ctx, ContractPprController, reg.ContourVerification, "owner")
		if err != nil && !isRevert(err) {
			return nil, err
		}
		reg.ContourVerificationOwner = cv.addr("0")
	}

	reg.Members = map[string][]string{}
	for role, addr := range map[string]string{
		"owner":                    reg.Owner,
		"minter":                   reg.Minter,
		"geoDataManager":           reg.GeoDataManager,
		"feeManager":               reg.FeeManager,
		"burner":                   reg.Burner,
		"contourVerificationOwner": reg.ContourVerificationOwner,
	} {
		if addr != "" {
			reg.Members[role] = append(reg.Members[role], addr)
		}
	}
	return reg, nil
}

func (c *ethereumClient) PprProposal(ctx context.Context, controller, proposalID string) (*chain.PprProposal, error) {
	v, err := c.call(ctx, ContractPprController, controller, "proposals", bigID(proposalID))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}

	data := v.str("data")
	p := &chain.PprProposal{
		ProposalID:              proposalID,
		Creator:                 v.addr("creator"),
		Status:                  enumName(pprProposalStatus, v.num("status")),
		Data:                    data,
		DataLink:                v.str("dataLink"),
		ApprovedByTokenOwner:    v.boolean("tokenOwnerApproved"),
		ApprovedByRegistryOwner: v.boolean("geoDataManagerApproved", "registryOwnerApproved"),
	}
	p.IsExecuted = p.Status == chain.PprProposalExecuted
	if len(data) >= 10 {
		p.Signature = data[:10]
		p.IsBurnProposal = p.Signature == burnSelector
	}
	// every controller call takes the token id as its first argument
	if raw, err := hexutil.Decode(data); err == nil && len(raw) >= 36 {
		p.TokenID = new(big.Int).SetBytes(raw[4:36]).String()
	}
	return p, nil
}

func (c *ethereumClient) BurnTimeout(ctx context.Context, controller, tokenID string) (*chain.BurnTimeout, error) {
	id := bigID(tokenID)
	duration, err := c.call(ctx, ContractPprController, controller, "burnTimeoutDuration", id)
	if err != nil {
		return nil, err
	}
	at, err := c.call(ctx, ContractPprController, controller, "burnTimeoutAt", id)
	if err != nil {
		return nil, err
	}

	timeout := duration.num("0")
	if timeout == 0 {
		def, err := c.call(ctx, ContractPprController, controller, "defaultBurnTimeoutDuration")
		if err != nil {
			return nil, err
		}
		timeout = def.num("0")
	}
	return &chain.BurnTimeout{Timeout: timeout, BurnOn: unixTime(at.num("0"))}, nil
}

func (c *ethereumClient) CommunityAddress(ctx context.Context, factory, fundID string) (string, error) {
	v, err := c.call(ctx, ContractFundFactory, factory, "fundContracts", bytes32(fundID))
	if err != nil {
		return "", err
	}
	registry := v.addr("fundRegistry", "0")
	if registry == "" {
		return "", nil
	}
	ra, err := c.call(ctx, ContractFundRegistry, registry, "getRAAddress")
	if err != nil {
		return "", err
	}
	return ra.addr("0"), nil
}

func (c *ethereumClient) Community(ctx context.Context, ref chain.CommunityRef) (*chain.Community, error) {
	ra, err := c.callEach(ctx, ContractFundRA, ref.Address, "fundRegistry", "totalSupply")
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	registry := ra.addr("fundRegistry")
	if registry == "" {
		return nil, nil
	}

	reg, err := c.callEach(ctx, ContractFundRegistry, registry,
		"getStorageAddress", "getMultiSigAddress", "getRuleRegistryAddress", "getProposalManagerAddress")
	if err != nil {
		return nil, err
	}

	community := &chain.Community{
		StorageAddress:        reg.addr("getStorageAddress"),
		MultisigAddress:       reg.addr("getMultiSigAddress"),
		RuleRegistryAddress:   reg.addr("getRuleRegistryAddress"),
		PmAddress:             reg.addr("getProposalManagerAddress"),
		ReputationTotalSupply: ra.ether("totalSupply"),
	}

	if community.StorageAddress != "" {
		st, err := c.callEach(ctx, ContractFundStorage, community.StorageAddress, "isPrivate", "name", "dataLink")
		if err != nil {
			return nil, err
		}
		community.IsPrivate = st.boolean("isPrivate")
		community.Name = st.str("name")
		community.DataLink = st.str("dataLink")
	}
	if community.RuleRegistryAddress != "" {
		rr, err := c.call(ctx, ContractFundRuleRegistry, community.RuleRegistryAddress, "getActiveFundRulesCount")
		if err != nil {
			return nil, err
		}
		community.ActiveFundRulesCount = rr.count("0")
	}
	if community.MultisigAddress != "" {
		ms, err := c.call(ctx, ContractFundMultiSig, community.MultisigAddress, "getOwners")
		if err != nil {
			return nil, err
		}
		community.MultisigOwners = ms.addrs("0")
	}
	return community, nil
}

func (c *ethereumClient) Member(ctx context.Context, ref chain.CommunityRef, address string) (*chain.Member, error) {
	addr := common.HexToAddress(address)
	current, err := c.call(ctx, ContractFundRA, ref.Address, "balanceOf", addr)
	if err != nil {
		return nil, err
	}
	basic, err := c.call(ctx, ContractFundRA, ref.Address, "ownedBalanceOf", addr)
	if err != nil {
		return nil, err
	}
	tokens, err := c.call(ctx, ContractFundRA, ref.Address, "getSpaceTokenIdsByOwner", addr)
	if err != nil {
		return nil, err
	}

	m := &chain.Member{
		CurrentReputation: current.ether("0"),
		BasicReputation:   basic.ether("0"),
		Tokens:            tokens.strs("0"),
		Expelled:          make(map[string]bool),
	}

	if ref.StorageAddress == "" {
		return m, nil
	}
	ident, err := c.call(ctx, ContractFundStorage, ref.StorageAddress, "getMemberIdentification", addr)
	if err != nil && !isRevert(err) {
		return nil, err
	}
	m.FullNameHash = ident.str("fullNameHash")
	m.Photos = ident.strs("photosHashes")

	for _, id := range m.Tokens {
		ex, err := c.call(ctx, ContractFundStorage, ref.StorageAddress, "getExpelledToken", bigID(id))
		if err != nil {
			return nil, err
		}
		m.Expelled[id] = ex.boolean("isExpelled", "0")
	}
	return m, nil
}

func (c *ethereumClient) ReputationMinted(ctx context.Context, ref chain.CommunityRef, key domain.TokenKey) (bool, error) {
	v, err := c.call(ctx, ContractFundRA, ref.Address, "reputationMinted", bigID(key.TokenID))
	if err != nil {
		return false, err
	}
	return v.boolean("0"), nil
}

func (c *ethereumClient) TokenApproved(ctx context.Context, ref chain.CommunityRef, key domain.TokenKey) (bool, error) {
	if ref.StorageAddress == "" {
		return false, nil
	}
	v, err := c.call(ctx, ContractFundStorage, ref.StorageAddress, "isMintApproved", bigID(key.TokenID))
	if err != nil {
		return false, err
	}
	return v.boolean("0"), nil
}

func (c *ethereumClient) Voting(ctx context.Context, ref chain.CommunityRef, marker string) (*chain.Voting, error) {
	if ref.StorageAddress == "" {
		return nil, nil
	}
	m, err := c.call(ctx, ContractFundStorage, ref.StorageAddress, "getProposalMarker", bytes32(marker))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	cfg, err := c.call(ctx, ContractFundStorage, ref.StorageAddress, "getProposalVotingConfig", bytes32(marker))
	if err != nil {
		return nil, err
	}

	return &chain.Voting{
		ProposalManager: m.addr("proposalManager"),
		Name:            m.text("name"),
		Destination:     m.addr("destination"),
		Description:     m.str("description"),
		DataLink:        m.str("dataLink"),
		Active:          m.boolean("active"),
		Support:         cfg.ether("support") * 100,
		MinAcceptQuorum: cfg.ether("minAcceptQuorum") * 100,
		Timeout:         cfg.num("timeout"),
	}, nil
}

func (c *ethereumClient) Proposal(ctx context.Context, ref chain.CommunityRef, pmAddress, proposalID string) (*chain.Proposal, error) {
	id := bigID(proposalID)
	v, err := c.call(ctx, ContractFundProposalManager, pmAddress, "proposals", id)
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	voting, err := c.call(ctx, ContractFundProposalManager, pmAddress, "getProposalVoting", id)
	if err != nil {
		return nil, err
	}
	progress, err := c.call(ctx, ContractFundProposalManager, pmAddress, "getProposalVotingProgress", id)
	if err != nil {
		return nil, err
	}

	p := &chain.Proposal{
		ProposalID:      proposalID,
		Marker:          v.str("marker"),
		Creator:         v.addr("creator"),
		Destination:     v.addr("destination"),
		Status:          enumName(communityProposals, v.num("status")),
		Data:            v.str("data"),
		DataLink:        v.str("dataLink"),
		AcceptedShare:   progress.ether("ayesShare") * 100,
		DeclinedShare:   progress.ether("nayesShare") * 100,
		AbstainedShare:  progress.ether("abstainsShare") * 100,
		CurrentSupport:  progress.ether("currentSupport") * 100,
		RequiredSupport: progress.ether("requiredSupport") * 100,
		MinAcceptQuorum: progress.ether("minAcceptQuorum") * 100,
		CurrentQuorum:   progress.ether("currentQuorum", "ayesShare") * 100,
		TimeoutAt:       progress.num("timeoutAt"),
		TotalAccepted:   voting.ether("totalAyes"),
		TotalDeclined:   voting.ether("totalNays"),
		TotalAbstained:  voting.ether("totalAbstains"),
		AcceptedCount:   len(voting.strs("ayes")),
		DeclinedCount:   len(voting.strs("nays")),
		AbstainedCount:  len(voting.strs("abstains")),
	}
	if t := unixTime(v.num("createdAt")); t != nil {
		p.CreatedAt = *t
	}

	c.decodeRuleAction(p)
	return p, nil
}

// decodeRuleAction fills the action fields when the proposal calls the rule registry
func (c *ethereumClient) decodeRuleAction(p *chain.Proposal) {
	parsed, ok := c.contracts.ABI(ContractFundRuleRegistry)
	if !ok {
		return
	}
	raw, err := hexutil.Decode(p.Data)
	if err != nil || len(raw) < 4 {
		return
	}
	m, err := parsed.MethodById(raw[:4])
	if err != nil {
		return
	}
	args := make(map[string]any)
	if err := m.Inputs.UnpackIntoMap(args, raw[4:]); err != nil {
		return
	}
	in := make(values, len(args))
	for k, x := range args {
		in[argName(k)] = normalizeValue(x)
	}

	p.Action = trailingDigits.ReplaceAllString(m.Name, "")
	switch p.Action {
	case chain.ActionAddRule:
		p.RuleTypeID = in.str("typeId")
		p.RuleIpfsHash = in.str("ipfsHash")
		p.RuleDataLink = in.str("dataLink")
		if meeting := in.num("meetingId"); meeting != 0 {
			p.MeetingID = strconv.FormatUint(meeting, 10)
		}
	case chain.ActionDisableRule:
		p.RuleID = in.str("id", "ruleId")
	}
}

func (c *ethereumClient) Rule(ctx context.Context, ref chain.CommunityRef, ruleID string) (*chain.Rule, error) {
	v, err := c.call(ctx, ContractFundRuleRegistry, ref.RuleRegistryAddress, "fundRules", bigID(ruleID))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	rule := &chain.Rule{
		IsActive: v.boolean("active"),
		TypeID:   v.str("typeId"),
		Manager:  v.addr("manager"),
		IpfsHash: content.HashFromBytes32(v.str("ipfsHash")),
		DataLink: v.str("dataLink"),
	}
	if meeting := v.num("meetingId"); meeting != 0 {
		rule.MeetingID = strconv.FormatUint(meeting, 10)
	}
	return rule, nil
}

func (c *ethereumClient) Meeting(ctx context.Context, ref chain.CommunityRef, meetingID string) (*chain.Meeting, error) {
	v, err := c.call(ctx, ContractFundRuleRegistry, ref.RuleRegistryAddress, "meetings", bigID(meetingID))
	if err != nil {
		if isRevert(err) {
			return nil, nil
		}
		return nil, err
	}
	return &chain.Meeting{
		Creator:  v.addr("creator"),
		IsActive: v.boolean("active"),
		StartOn:  unixTime(v.num("startOn")),
		EndOn:    unixTime(v.num("endOn")),
		DataLink: v.str("dataLink"),
	}, nil
}

// AddedRuleID scans the transaction receipt for an AddFundRule log of the community rule registry
func (c *ethereumClient) AddedRuleID(ctx context.Context, ref chain.CommunityRef, txHash string) (string, error) {
	parsed, ok := c.contracts.ABI(ContractFundRuleRegistry)
	if !ok {
		return "", nil
	}
	ev, ok := parsed.Events["AddFundRule"]
	if !ok {
		return "", nil
	}

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return "", fmt.Errorf("failed to get receipt of %s: %w", txHash, err)
	}

	registry := common.HexToAddress(ref.RuleRegistryAddress)
	for _, vLog := range receipt.Logs {
		if vLog == nil || vLog.Address != registry {
			continue
		}
		args, err := decodeLog(boundEvent{abi: parsed, event: ev}, *vLog)
		if err != nil {
			continue
		}
		if id := values(args).str("id", "ruleId"); id != "" {
			return id, nil
		}
	}
	return "", nil
}

func (c *ethereumClient) BlockTimestamp(ctx context.Context, block uint64) (time.Time, error) {
	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get header of block %d: %w", block, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil //nolint:gosec,G115
}

// geohash5ToString decodes a geohash packed five bits per symbol, first symbol in the highest bits.
// Values wider than twelve symbols are not geohashes and give "".
func geohash5ToString(n *big.Int) string {
	if n.Sign() <= 0 || n.BitLen() > 5*geohash.MaxPrecision {
		return ""
	}
	chars := uint((n.BitLen() + 4) / 5)
	return mmgeohash.ConvertIntToString(n.Uint64(), chars)
}

// humanAddressField reads one key of a "key=value" address, pairs separated by "|" or new lines
func humanAddressField(address, key string) string {
	for _, pair := range strings.FieldsFunc(address, func(r rune) bool { return r == '|' || r == '\n' }) {
		k, v, ok := strings.Cut(pair, "=")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
