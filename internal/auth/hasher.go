package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"
)

// scryptパラメータ。保存形式は "hex(derivedKey).hex(salt)"。
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16
)

// PasswordHasher はパスワードハッシュの生成と検証を提供する。
type PasswordHasher interface {
	// Hash はソルト付きハッシュを保存形式で返す。
	Hash(ctx context.Context, password string) (string, error)
	// Verify は平文が保存形式のハッシュと一致するかを返す。
	// 形式不正やKDFの失敗はfalseとして扱う。
	Verify(ctx context.Context, password, stored string) (bool, error)
}

// ScryptHasher はscryptによるPasswordHasherの実装。
// KDFはCPUを占有するため、同時実行数をセマフォで制限する。
type ScryptHasher struct {
	sem *semaphore.Weighted
	n   int // scryptのCPU/メモリコスト
}

// NewScryptHasher はScryptHasherを生成する。
// maxConcurrentが0以下の場合はGOMAXPROCSを上限とする。
func NewScryptHasher(maxConcurrent int) *ScryptHasher {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &ScryptHasher{
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
		n:   scryptN,
	}
}

// Hash はランダムなソルトでパスワードを導出し、"key.salt" 形式の16進文字列を返す。
// エラーはセマフォ待機中のコンテキスト終了か乱数生成の失敗のみ。
func (h *ScryptHasher) Hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := h.derive(ctx, password, salt)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// Verify は保存形式を分解し、抽出したソルトで再導出した鍵を定数時間比較する。
// 保存形式が不正な場合は (false, nil) を返す。
// エラーを返すのはコンテキストが終了した場合のみ。
func (h *ScryptHasher) Verify(ctx context.Context, password, stored string) (bool, error) {
	keyHex, saltHex, ok := strings.Cut(stored, ".")
	if !ok || keyHex == "" || saltHex == "" {
		return false, nil
	}

	expected, err := hex.DecodeString(keyHex)
	if err != nil || len(expected) != scryptKeyLen {
		return false, nil
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false, nil
	}

	computed, err := h.derive(ctx, password, salt)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		return false, nil
	}

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// derive はセマフォを取得してからscryptで鍵を導出する。
func (h *ScryptHasher) derive(ctx context.Context, password string, salt []byte) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	key, err := scrypt.Key([]byte(password), salt, h.n, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// compile-time interface check
var _ PasswordHasher = (*ScryptHasher)(nil)
