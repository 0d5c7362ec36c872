package schema

// Models lists every table in migration order. Flush deletes them in reverse.
func Models() []interface{} {
	return []interface{}{
		&KeyValueStore{},
		&ContourCell{},
		&GeoToken{},
		&GeoTokenOwner{},
		&GeoTokenFeature{},
		&SaleOrder{},
		&SaleOrderToken{},
		&SaleOrderFeature{},
		&DeferredTokenRef{},
		&SaleOffer{},
		&Application{},
		&ApplicationRole{},
		&ApplicationToken{},
		&PrivatePropertyRegistry{},
		&PprMember{},
		&PprProposal{},
		&PprLegalAgreement{},
		&Community{},
		&CommunityToken{},
		&CommunityApprovedToken{},
		&CommunityMember{},
		&CommunityVoting{},
		&CommunityProposal{},
		&CommunityRule{},
		&CommunityMeeting{},
	}
}
