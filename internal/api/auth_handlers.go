package api

import "net/http"

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	res, err := rt.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := rt.decode(w, r, &req); err != nil {
		return err
	}
	res, err := rt.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}
