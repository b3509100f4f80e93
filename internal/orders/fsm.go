package orders

import (
	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

var productOrderRank = map[enums.ProductOrderStatus]int{
	enums.ProductOrderStatusPending:   0,
	enums.ProductOrderStatusConfirmed: 1,
	enums.ProductOrderStatusShipped:   2,
	enums.ProductOrderStatusDelivered: 3,
}

// CanTransitionProductOrder allows forward moves along
// pending -> confirmed -> shipped -> delivered (skipping is fine) and
// cancellation from any non-terminal state.
func CanTransitionProductOrder(from, to enums.ProductOrderStatus) bool {
	if from.IsTerminal() || !to.IsValid() || from == to {
		return false
	}
	if to == enums.ProductOrderStatusCancelled {
		return true
	}
	fromRank, ok := productOrderRank[from]
	if !ok {
		return false
	}
	return productOrderRank[to] > fromRank
}

// Party is the relationship between the caller and a booking.
type Party string

const (
	PartyBuyer    Party = "buyer"
	PartyProvider Party = "provider"
	PartyNone     Party = ""
)

type bookingEdge struct {
	from enums.ServiceOrderStatus
	to   enums.ServiceOrderStatus
}

var bookingEdges = map[bookingEdge][]Party{
	{enums.ServiceOrderStatusPending, enums.ServiceOrderStatusAccepted}:     {PartyProvider},
	{enums.ServiceOrderStatusPending, enums.ServiceOrderStatusCancelled}:    {PartyProvider, PartyBuyer},
	{enums.ServiceOrderStatusAccepted, enums.ServiceOrderStatusInProgress}:  {PartyProvider},
	{enums.ServiceOrderStatusAccepted, enums.ServiceOrderStatusCancelled}:   {PartyProvider},
	{enums.ServiceOrderStatusInProgress, enums.ServiceOrderStatusDelivered}: {PartyProvider},
	{enums.ServiceOrderStatusDelivered, enums.ServiceOrderStatusCompleted}:  {PartyProvider, PartyBuyer},
}

// BookingTransitionAllowed reports whether the edge exists at all, and whether
// party may take it. Disputes can be raised by either side from any active state.
func BookingTransitionAllowed(from, to enums.ServiceOrderStatus, party Party) (exists bool, permitted bool) {
	if to == enums.ServiceOrderStatusDisputed {
		if !from.IsActive() {
			return false, false
		}
		return true, party == PartyBuyer || party == PartyProvider
	}
	parties, ok := bookingEdges[bookingEdge{from: from, to: to}]
	if !ok {
		return false, false
	}
	for _, p := range parties {
		if p == party {
			return true, true
		}
	}
	return true, false
}
