package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tos-network/tos-pool/internal/dlv"
	"github.com/tos-network/tos-pool/internal/rewardvault"
	"github.com/tos-network/tos-pool/internal/vaulterr"
)

// SetVaultManager wires the reward vault engine into the API server,
// exposing its endpoints under /api and, when the admin API is enabled,
// the rate schedule endpoint under /admin. Call it before Start.
func (s *Server) SetVaultManager(m *rewardvault.RewardVaultManager) {
	s.vault = m

	api := s.router.Group("/api")
	{
		api.POST("/vaults", s.handleCreateVault)
		api.GET("/vaults", s.handleListVaults)
		api.GET("/vaults/:id", s.handleGetVault)
		api.POST("/receipts", s.handleCreateReceipt)
		api.GET("/rewards/:node_id", s.handleNodeRewards)
	}

	if s.adminGroup != nil {
		s.adminGroup.PUT("/rate-schedule", s.handleUpdateRateSchedule)
	}
}

// vaultErrStatus maps a vaulterr.Kind to an HTTP status code.
func vaultErrStatus(err error) int {
	switch vaulterr.KindOf(err) {
	case vaulterr.KindInvalidArgument:
		return http.StatusBadRequest
	case vaulterr.KindNotFound:
		return http.StatusNotFound
	case vaulterr.KindSerialization, vaulterr.KindDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// createVaultRequest is the POST /api/vaults request body.
type createVaultRequest struct {
	CreatorPublicKey string             `json:"creator_public_key"`
	TokenAmount      uint64             `json:"token_amount"`
	TokenID          string             `json:"token_id"`
	DistributionTime uint64             `json:"distribution_time"`
	Recipients       map[string]float64 `json:"recipients"`
	ReferenceHash    string             `json:"reference_hash"`
	ReferenceHeight  uint64             `json:"reference_height"`
	Purpose          string             `json:"purpose"`
}

func (s *Server) handleCreateVault(c *gin.Context) {
	var req createVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipients := make(map[string]rewardvault.Ratio, len(req.Recipients))
	for nodeID, share := range req.Recipients {
		ratio, err := rewardvault.NewRatio(share)
		if err != nil {
			c.JSON(vaultErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		recipients[nodeID] = ratio
	}

	vaultID, err := s.vault.CreateRewardVault(rewardvault.CreateRewardVaultParams{
		Creator:          dlv.KeyPair{Public: []byte(req.CreatorPublicKey)},
		TokenAmount:      req.TokenAmount,
		TokenID:          req.TokenID,
		DistributionTime: req.DistributionTime,
		Recipients:       recipients,
		ReferenceState:   rewardvault.ReferenceStateSnapshot{Hash: []byte(req.ReferenceHash), Height: req.ReferenceHeight},
		Purpose:          req.Purpose,
	})
	if err != nil {
		c.JSON(vaultErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vault_id": vaultID})
}

func (s *Server) handleListVaults(c *gin.Context) {
	c.JSON(http.StatusOK, s.vault.GetVaults())
}

func (s *Server) handleGetVault(c *gin.Context) {
	meta, err := s.vault.GetVault(c.Param("id"))
	if err != nil {
		c.JSON(vaultErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// createReceiptRequest is the POST /api/receipts request body.
type createReceiptRequest struct {
	NodeID          string   `json:"node_id"`
	ClientID        string   `json:"client_id"`
	PeriodStart     uint64   `json:"period_start"`
	PeriodEnd       uint64   `json:"period_end"`
	BytesStored     uint64   `json:"bytes_stored"`
	Retrievals      uint64   `json:"retrievals"`
	Operations      uint64   `json:"operations"`
	UptimePercent   uint8    `json:"uptime_percent"`
	Regions         []string `json:"regions"`
	ClientSignature string   `json:"client_signature"`
	NodeSignature   string   `json:"node_signature"`
}

func (s *Server) handleCreateReceipt(c *gin.Context) {
	var req createReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics := rewardvault.NewStorageMetrics(req.BytesStored, req.Retrievals, req.Operations, req.UptimePercent, req.Regions)
	period := rewardvault.ServicePeriod{Start: req.PeriodStart, End: req.PeriodEnd}
	receipt := rewardvault.NewReceipt(req.NodeID, req.ClientID, period, metrics, []byte(req.ClientSignature), []byte(req.NodeSignature))

	if err := s.vault.ProcessReceipt(receipt); err != nil {
		c.JSON(vaultErrStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"receipt_hash": receipt.ReceiptHash})
}

func (s *Server) handleNodeRewards(c *gin.Context) {
	nodeID := c.Param("node_id")
	start := parseQueryUint(c, "start")
	end := parseQueryUint(c, "end")

	c.JSON(http.StatusOK, gin.H{
		"node_id":         nodeID,
		"rewards":         s.vault.CalculateNodeRewards(nodeID, start, end),
		"operation_bonus": s.vault.CalculateNodeOperationBonus(nodeID, start, end),
	})
}

// updateRateScheduleRequest is the PUT /admin/rate-schedule request body.
type updateRateScheduleRequest struct {
	BaseRatePerByteDay uint64             `json:"base_rate_per_byte_day"`
	RetrievalRate      uint64             `json:"retrieval_rate"`
	OperationRate      uint64             `json:"operation_rate"`
	UptimeMultiplier   float64            `json:"uptime_multiplier"`
	RegionMultipliers  map[string]float64 `json:"region_multipliers"`
}

func (s *Server) handleUpdateRateSchedule(c *gin.Context) {
	var req updateRateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.vault.UpdateRateSchedule(rewardvault.RateSchedule{
		BaseRatePerByteDay: req.BaseRatePerByteDay,
		RetrievalRate:      req.RetrievalRate,
		OperationRate:      req.OperationRate,
		UptimeMultiplier:   req.UptimeMultiplier,
		RegionMultipliers:  req.RegionMultipliers,
	})

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func parseQueryUint(c *gin.Context, key string) uint64 {
	var value uint64
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return value
		}
		value = value*10 + uint64(ch-'0')
	}
	return value
}
