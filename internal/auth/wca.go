package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cubedev/cubedev/internal/config"
	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/database/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// WCAHandler drives the OAuth login flow against the World Cube Association.
type WCAHandler struct {
	cfg    *config.Config
	db     *gorm.DB
	oauth2 *oauth2.Config
}

// WCAMe is the relevant subset of the WCA /api/v0/me payload.
type WCAMe struct {
	Me struct {
		ID          int    `json:"id"`
		WCAID       string `json:"wca_id"`
		Name        string `json:"name"`
		CountryISO2 string `json:"country_iso2"`
		Avatar      struct {
			URL string `json:"url"`
		} `json:"avatar"`
	} `json:"me"`
}

func NewWCAHandler(cfg *config.Config, db *gorm.DB) *WCAHandler {
	return &WCAHandler{
		cfg: cfg,
		db:  db,
		oauth2: &oauth2.Config{
			ClientID:     cfg.Auth.WCA.ClientID,
			ClientSecret: cfg.Auth.WCA.ClientSecret,
			RedirectURL:  cfg.Auth.WCA.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Auth.WCA.URL + "/oauth/authorize",
				TokenURL: cfg.Auth.WCA.URL + "/oauth/token",
			},
			Scopes: []string{"public"},
		},
	}
}

func (h *WCAHandler) Login(c *gin.Context) {
	url := h.oauth2.AuthCodeURL("state", oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *WCAHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	token, err := h.oauth2.Exchange(context.Background(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange token: " + err.Error()})
		return
	}

	client := h.oauth2.Client(context.Background(), token)
	resp, err := client.Get(h.cfg.Auth.WCA.URL + "/api/v0/me")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user info: " + err.Error()})
		return
	}
	defer resp.Body.Close()

	var me WCAMe
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode user info: " + err.Error()})
		return
	}

	user, err := h.upsertUser(&me)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error: " + err.Error()})
		return
	}

	jwtToken, err := GenerateJWT(user.ID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate JWT: " + err.Error()})
		return
	}

	// Hand the token back to the frontend if a callback URL is configured;
	// otherwise respond with JSON for API clients.
	if h.cfg.Auth.WCA.FrontendCallbackURL != "" {
		redirect := fmt.Sprintf("%s?token=%s", h.cfg.Auth.WCA.FrontendCallbackURL, url.QueryEscape(jwtToken))
		c.Redirect(http.StatusTemporaryRedirect, redirect)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": jwtToken})
}

// upsertUser creates the user on first login and refreshes the WCA profile
// fields on every subsequent login.
func (h *WCAHandler) upsertUser(me *WCAMe) (*models.User, error) {
	wcaID := me.Me.WCAID
	if wcaID == "" {
		// Accounts without an assigned WCA ID still carry a numeric account id.
		wcaID = fmt.Sprintf("account-%d", me.Me.ID)
	}

	user, err := database.GetUserByWCAID(h.db, wcaID)
	if err == gorm.ErrRecordNotFound {
		newUser := models.User{
			ID:          uuid.NewString(),
			WCAID:       &wcaID,
			Username:    wcaID,
			Name:        me.Me.Name,
			AvatarURL:   me.Me.Avatar.URL,
			CountryISO2: me.Me.CountryISO2,
			Preferences: models.JSONMap{},
		}
		if err := database.CreateUser(h.db, &newUser); err != nil {
			return nil, err
		}
		zap.S().Infof("new user registered via WCA: %s", newUser.Username)
		return &newUser, nil
	} else if err != nil {
		return nil, err
	}

	user.Name = me.Me.Name
	user.AvatarURL = me.Me.Avatar.URL
	user.CountryISO2 = me.Me.CountryISO2
	if err := database.UpdateUser(h.db, user); err != nil {
		return nil, err
	}
	return user, nil
}
