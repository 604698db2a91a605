package models

// Revert reasons returned verbatim by desk operations.
const (
	ReasonDeskAlreadyDeployed = "Desk already deployed"

	ReasonTokenNotSupported   = "This token is not supported"
	ReasonTokenPriceNotSet    = "Token price has not been set"
	ReasonDurationNotAccepted = "That is not an accepted duration"
	ReasonInvalidSide         = "Invalid option side"
	ReasonInvalidStyle        = "Invalid option style"
	ReasonInvalidStrikeTier   = "Invalid strike tier"
	ReasonCoverStrike         = "You aren't sending enough to cover the strike price * 100"
	ReasonCoverMarket         = "You aren't sending enough to cover the market price * 100"

	ReasonOptionNotFound        = "Option does not exist"
	ReasonOptionPurchased       = "Option has been purchased"
	ReasonBuyOwnOption          = "You cannot buy your own option"
	ReasonOptionCancelled       = "Option has been cancelled"
	ReasonPurchaseMarketPrice   = "Amount sent insufficient for purchase (market price * 100)"
	ReasonPurchasePremium       = "Amount sent insufficient for purchase (premium)"
	ReasonStillUpForSale        = "This option is still up for sale"
	ReasonNotOwner              = "You are not the owner of this option"
	ReasonAlreadyForSale        = "This Option is already up for sale"
	ReasonOptionSettled         = "Option has been settled"
	ReasonPriceMustBePositive   = "Price must be positive"
	ReasonNotForSale            = "Not for sale"
	ReasonAlreadyOwner          = "You already own this option"
	ReasonInsufficientForResale = "Insufficient funds for purchase"
	ReasonNotPurchased          = "Option has not been purchased"
	ReasonUpForSale             = "This option is up for sale"
	ReasonOptionExpired         = "Option has expired"
	ReasonEuropeanAtExpiry      = "European options can only be called at expiry"
	ReasonNotRiskTaker          = "You are not the risk taker of this option"
	ReasonNotExpired            = "Option has not expired yet"
	ReasonNotCreator            = "You are not the creator of this option"

	ReasonRebalanceParty        = "Only the owner or risk taker can rebalance"
	ReasonStrikeMustBePositive  = "Strike price must be positive"
	ReasonStrikeIncreaseFunds   = "Insufficient funds to cover the strike increase"
	ReasonOnlyRiskTakerIncrease = "Only the risk taker can increase collateral"
	ReasonCollateralCovers      = "Collateral already covers the market price"
	ReasonIncreaseFunds         = "Insufficient funds to cover the market price"

	ReasonOnlyAdminPrices = "Only the admin can update prices"
)
