package entities

// Badge keys. The engine only knows these as opaque set members; the calling
// component owns the trigger condition that leads to each grant.
const (
	BadgeNewMember        = "new_member"
	BadgeFirstRedemption  = "first_redemption"
	BadgeVeteranSixMonths = "veteran_6m"
	BadgeVeteranOneYear   = "veteran_1y"
	BadgeFrequentBuyer    = "frequent_buyer"
	BadgeActiveReactor    = "active_reactor"
)

// BadgeDefinition is display metadata for one unlockable badge.
type BadgeDefinition struct {
	Key         string
	Name        string
	Description string
}

// BadgeCatalog is the static set of unlockable badges.
var BadgeCatalog = []BadgeDefinition{
	{Key: BadgeNewMember, Name: "New Member", Description: "Joined the community."},
	{Key: BadgeFirstRedemption, Name: "First Redemption", Description: "Redeemed a first reward from the catalog."},
	{Key: BadgeVeteranSixMonths, Name: "Six-Month Veteran", Description: "Six months of continuous membership."},
	{Key: BadgeVeteranOneYear, Name: "One-Year Veteran", Description: "A full year of continuous membership."},
	{Key: BadgeFrequentBuyer, Name: "Frequent Buyer", Description: "Completed five or more purchases."},
	{Key: BadgeActiveReactor, Name: "Active Reactor", Description: "Maxed out a full day of interaction points."},
}

// BadgeByKey looks up catalog metadata, reporting false for unknown keys.
func BadgeByKey(key string) (BadgeDefinition, bool) {
	for _, def := range BadgeCatalog {
		if def.Key == key {
			return def, true
		}
	}
	return BadgeDefinition{}, false
}
