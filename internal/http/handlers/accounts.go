package handlers

import (
	"encoding/json"
	"net/http"

	"parkometr/internal/domain"
	"parkometr/internal/services"
	"parkometr/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type addUserRequest struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type chargeUserRequest struct {
	UserID int64 `json:"user_id"`
	// Amount is a JSON number or a string such as "12,50 zł".
	Amount json.RawMessage `json:"amount"`
}

func parseAmountField(raw json.RawMessage) (decimal.Decimal, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	amount, err := utils.ParseAmount(text)
	if err != nil {
		return decimal.Zero, domain.ValidationError{Field: "amount", Msg: "must be an amount such as 12.50", Err: err}
	}
	return amount, nil
}

func accountService(c *gin.Context) services.AccountService {
	d := currentDeps()
	return services.AccountService{Tokens: d.Tokens, Now: d.Now, RequestID: requestID(c)}
}

// POST /login
func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	user, token, err := accountService(c).Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged in", "user": user, "token": token})
}

// POST /admin/add-user
func AddUser(c *gin.Context) {
	var req addUserRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	user, err := accountService(c).CreateUser(c.Request.Context(), services.NewUser{
		Login:     req.Login,
		Password:  req.Password,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User created", "user": user})
}

// GET /admin/get-all-users
func ListUsers(c *gin.Context) {
	users, err := accountService(c).ListUsers(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// POST /admin/charge-user
func ChargeUser(c *gin.Context) {
	var req chargeUserRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	amount, err := parseAmountField(req.Amount)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	balance, err := accountService(c).TopUp(c.Request.Context(), req.UserID, amount)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Balance topped up", "user_id": req.UserID, "balance": balance})
}

// GET /api/user/:id
func UserProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := accountService(c).Profile(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
