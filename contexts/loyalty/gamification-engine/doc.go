// Package gamificationengine implements the Gamification Engine inside the
// loyalty context.
//
// The module owns the member points ledger (earn, deduct, clamp-at-zero),
// level resolution over a fixed tier table, idempotent badge grants, atomic
// reward redemption against finite stock, purchase-to-points conversion with
// the frequency bonus, daily-capped interaction awards, the periodic
// permanence sweep, and leaderboard reads. Business rules live in the
// application/domain layers; infrastructure stays behind ports and adapters.
package gamificationengine
