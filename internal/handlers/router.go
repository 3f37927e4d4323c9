package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/middleware"
)

func NewRouter(
	authHandlers *AuthHandlers,
	userHandlers *UserHandlers,
	authMiddleware *middleware.AuthMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/request-otp", authHandlers.RequestOTP).Methods(http.MethodPost)
	auth.HandleFunc("/verify-otp", authHandlers.VerifyOTP).Methods(http.MethodPost)
	auth.Handle("/logout", authMiddleware.RequireAuth(http.HandlerFunc(authHandlers.Logout))).Methods(http.MethodPost)

	users := api.PathPrefix("/users").Subrouter()
	users.Use(authMiddleware.RequireAuth)
	users.HandleFunc("/me", userHandlers.GetMe).Methods(http.MethodGet)
	users.HandleFunc("/me", userHandlers.UpdateMe).Methods(http.MethodPatch)
	users.HandleFunc("/{id}", userHandlers.GetUser).Methods(http.MethodGet)

	return router
}
