// Package encryption 提供 ECIES 公钥加密与口令加密
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
)

// 错误定义
var (
	ErrInvalidKeyLength  = errors.New("无效的密钥长度")
	ErrInvalidCiphertext = errors.New("无效的密文格式")
	ErrDecryptionFailed  = errors.New("解密失败")
	ErrEmptyData         = errors.New("不能加密空数据")
)

// 口令加密参数
const (
	saltSize = 16
	keySize  = 32

	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// EncryptionService 提供加密和解密功能
type EncryptionService struct{}

// NewEncryptionService 创建新的加密服务
func NewEncryptionService() *EncryptionService {
	return &EncryptionService{}
}

// Encrypt 使用公钥加密数据
//
// 支持的公钥格式：
//   - 33字节压缩公钥
//   - 64字节未压缩公钥（无前缀）
//   - 65字节未压缩公钥（带0x04前缀）
func (s *EncryptionService) Encrypt(data []byte, publicKey []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	ecdsaPubKey, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("公钥格式处理失败: %w", err)
	}

	// 必须使用 geth 的 secp256k1 曲线实现，否则 ecies 会报 unsupported ECIES parameters
	return ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(ecdsaPubKey), data, nil, nil)
}

// Decrypt 使用私钥解密数据
func (s *EncryptionService) Decrypt(encryptedData []byte, privateKey []byte) ([]byte, error) {
	ecdsaPrivKey, err := gethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)
	}

	plaintext, err := ecies.ImportECDSA(ecdsaPrivKey).Decrypt(encryptedData, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// EncryptWithPassword 使用口令加密数据
// 输出格式：salt(16) ‖ nonce ‖ AES-GCM 密文
func (s *EncryptionService) EncryptWithPassword(data []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := s.newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, data, nil)

	result := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// DecryptWithPassword 使用口令解密数据
func (s *EncryptionService) DecryptWithPassword(encryptedData []byte, password string) ([]byte, error) {
	if len(encryptedData) < saltSize {
		return nil, ErrInvalidCiphertext
	}

	salt := encryptedData[:saltSize]
	gcm, err := s.newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encryptedData) < saltSize+nonceSize+gcm.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce := encryptedData[saltSize : saltSize+nonceSize]
	plaintext, err := gcm.Open(nil, nonce, encryptedData[saltSize+nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func (s *EncryptionService) newGCM(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// deriveKey 从口令和盐派生密钥，scrypt 参数异常时降级到 PBKDF2
func deriveKey(password string, salt []byte) []byte {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		key = pbkdf2.Key([]byte(password), salt, 10000, keySize, sha256.New)
	}
	return key
}

// ParsePublicKey 解析 33/64/65 字节的 secp256k1 公钥
func ParsePublicKey(publicKey []byte) (*ecdsa.PublicKey, error) {
	switch len(publicKey) {
	case 33:
		return gethcrypto.DecompressPubkey(publicKey)
	case 64:
		return gethcrypto.UnmarshalPubkey(append([]byte{0x04}, publicKey...))
	case 65:
		if publicKey[0] != 0x04 {
			return nil, fmt.Errorf("无效的65字节公钥前缀: 0x%02x，期望0x04", publicKey[0])
		}
		return gethcrypto.UnmarshalPubkey(publicKey)
	default:
		return nil, fmt.Errorf("%w: %d，期望33、64或65字节", ErrInvalidKeyLength, len(publicKey))
	}
}

// 确保EncryptionService实现了cryptointf.EncryptionManager接口
var _ cryptointf.EncryptionManager = (*EncryptionService)(nil)
