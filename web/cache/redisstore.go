package cache

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	gorillasessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
)

const defaultMaxAge = 86400

var errSessionNotFound = errors.New("cache: session not found")

// RedisStore keeps session values in redis. The cookie only carries the signed session id.
type RedisStore struct {
	client  *redis.Client
	Codecs  []securecookie.Codec
	options *sessions.Options
}

var _ sessions.Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, keyPairs ...[]byte) *RedisStore {
	return &RedisStore{
		client: client,
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		options: &sessions.Options{
			Path:     "/",
			MaxAge:   defaultMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func (s *RedisStore) Options(opts sessions.Options) {
	s.options = &opts
}

func (s *RedisStore) Get(r *http.Request, name string) (*gorillasessions.Session, error) {
	return gorillasessions.GetRegistry(r).Get(s, name)
}

// New returns the session named by the request cookie, or a fresh one when the cookie is
// missing, forged or points at an expired entry.
func (s *RedisStore) New(r *http.Request, name string) (*gorillasessions.Session, error) {
	session := gorillasessions.NewSession(s, name)
	session.Options = &gorillasessions.Options{
		Path:     s.options.Path,
		Domain:   s.options.Domain,
		MaxAge:   s.options.MaxAge,
		Secure:   s.options.Secure,
		HttpOnly: s.options.HttpOnly,
		SameSite: s.options.SameSite,
	}
	session.IsNew = true

	if c, errCookie := r.Cookie(name); errCookie == nil {
		if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err == nil {
			if err := s.load(r.Context(), session); err == nil {
				session.IsNew = false
			}
		}
	}
	return session, nil
}

// Save writes the session, or deletes it when MaxAge < 0.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *gorillasessions.Session) error {
	if session.Options.MaxAge < 0 {
		if err := s.delete(r.Context(), session); err != nil {
			return err
		}
		http.SetCookie(w, s.newCookie(session, ""))
		return nil
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
	}
	if err := s.save(r.Context(), session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.newCookie(session, encoded))
	return nil
}

// Renew drops the stored entry of the request's session and clears its id, so the next
// Save issues a new one. Values already set on the session are kept.
func (s *RedisStore) Renew(r *http.Request, name string) error {
	session, err := s.Get(r, name)
	if err != nil {
		return err
	}
	if err := s.delete(r.Context(), session); err != nil {
		return err
	}
	session.ID = ""
	session.IsNew = true
	return nil
}

func (s *RedisStore) newCookie(session *gorillasessions.Session, value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     session.Name(),
		Value:    value,
		Path:     session.Options.Path,
		Domain:   session.Options.Domain,
		MaxAge:   session.Options.MaxAge,
		Secure:   session.Options.Secure,
		HttpOnly: session.Options.HttpOnly,
		SameSite: session.Options.SameSite,
	}
	if session.Options.MaxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	}
	return cookie
}

func sessionKey(id string) string {
	return KeySessionPrefix + id
}

// save gob-encodes the values so registered types like entity.Principal survive the round trip.
func (s *RedisStore) save(ctx context.Context, session *gorillasessions.Session) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(session.Values); err != nil {
		return fmt.Errorf("failed to encode session values: %w", err)
	}

	maxAge := session.Options.MaxAge
	if maxAge == 0 {
		maxAge = s.options.MaxAge
	}
	return s.client.Set(ctx, sessionKey(session.ID), buf.Bytes(), time.Duration(maxAge)*time.Second).Err()
}

func (s *RedisStore) load(ctx context.Context, session *gorillasessions.Session) error {
	data, err := s.client.Get(ctx, sessionKey(session.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return errSessionNotFound
	}
	if err != nil {
		return err
	}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&session.Values); err != nil {
		return fmt.Errorf("failed to decode session data: %w", err)
	}
	return nil
}

func (s *RedisStore) delete(ctx context.Context, session *gorillasessions.Session) error {
	if session.ID == "" {
		return nil
	}
	return s.client.Del(ctx, sessionKey(session.ID)).Err()
}
