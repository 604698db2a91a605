package desk

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

// DeployRequest carries the constructor arguments. Units are in supported
// token order; Value is sent by the deployer and becomes the desk float.
type DeployRequest struct {
	Deployer common.Address
	Units    []decimal.Decimal
	Value    decimal.Decimal
	// Prefund is minted to the deployer first, like a funded dev account.
	Prefund decimal.Decimal
}

// DeployPayload is the HTTP body of POST /desk/deploy.
type DeployPayload struct {
	Prices  []string `json:"prices" binding:"required,min=1" example:"1,2,3"`
	Value   string   `json:"value" example:"1 ether"`
	Prefund string   `json:"prefund" example:"100 ether"`
}

// ToDeployRequest parses the payload's amounts. Bare values are ether.
func (p *DeployPayload) ToDeployRequest(deployer common.Address) (*DeployRequest, error) {
	req := &DeployRequest{Deployer: deployer, Units: make([]decimal.Decimal, len(p.Prices))}
	for i, raw := range p.Prices {
		u, err := chain.ParseValue(raw, chain.Wei)
		if err != nil {
			return nil, err
		}
		req.Units[i] = u
	}
	var err error
	if req.Value, err = chain.ParseValue(p.Value, chain.Ether); err != nil {
		return nil, err
	}
	if req.Prefund, err = chain.ParseValue(p.Prefund, chain.Ether); err != nil {
		return nil, err
	}
	return req, nil
}

// DeployResult is what the constructor left behind.
type DeployResult struct {
	Desk   *models.Desk             `json:"desk"`
	Prices []*pricing.PriceResponse `json:"prices"`
}

// InfoResponse describes the deployed desk.
type InfoResponse struct {
	Admin         common.Address           `json:"admin"`
	Escrow        common.Address           `json:"escrow"`
	PriceUnit     decimal.Decimal          `json:"price_unit"`
	ContractSize  int64                    `json:"contract_size"`
	Float         decimal.Decimal          `json:"float"`
	OptionCount   uint64                   `json:"option_count"`
	EscrowBalance decimal.Decimal          `json:"escrow_balance"`
	DeployedAt    time.Time                `json:"deployed_at"`
	Symbols       []string                 `json:"symbols"`
	Durations     []int64                  `json:"durations"`
	Prices        []*pricing.PriceResponse `json:"prices"`
}
