package oracle

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/weisyn/confstake/internal/core/infrastructure/crypto/proof"
	cryptointf "github.com/weisyn/confstake/pkg/interfaces/infrastructure/crypto"
)

// KeystoreVersion 密钥库文件格式版本
const KeystoreVersion = "1.0.0"

// ErrKeystoreNotFound 密钥库文件不存在
var ErrKeystoreNotFound = errors.New("预言机密钥库不存在")

// KeyMaterial 预言机密钥材料
//
// EncryptionKey 解密账本密文；SignerKeys 为门限证明签名者。
// 预言机以 EncryptionKey 对应的地址作为回调主体。
type KeyMaterial struct {
	EncryptionKey *ecdsa.PrivateKey
	SignerKeys    []*ecdsa.PrivateKey
	Threshold     int
}

// GenerateKeyMaterial 生成新的密钥材料
func GenerateKeyMaterial(signers, threshold int) (*KeyMaterial, error) {
	if signers < 1 || threshold < 1 || threshold > signers {
		return nil, fmt.Errorf("门限参数无效: %d-of-%d", threshold, signers)
	}
	encKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("生成加密密钥失败: %w", err)
	}
	km := &KeyMaterial{EncryptionKey: encKey, Threshold: threshold}
	for i := 0; i < signers; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("生成签名密钥失败: %w", err)
		}
		km.SignerKeys = append(km.SignerKeys, key)
	}
	return km, nil
}

// EncryptionPublicKey 压缩格式的加密公钥，账本用它加密金额
func (k *KeyMaterial) EncryptionPublicKey() []byte {
	return crypto.CompressPubkey(&k.EncryptionKey.PublicKey)
}

// Principal 预言机回调主体地址
func (k *KeyMaterial) Principal() common.Address {
	return crypto.PubkeyToAddress(k.EncryptionKey.PublicKey)
}

// Signer 门限签名者集合
func (k *KeyMaterial) Signer() *proof.Signer {
	return proof.NewSigner(k.SignerKeys...)
}

// Verifier 与签名者集合对应的证明验证器
func (k *KeyMaterial) Verifier() (*proof.Verifier, error) {
	return proof.NewVerifier(k.Signer().Addresses(), k.Threshold)
}

// keystoreFile 密钥库文件格式
//
// 公开部分明文保存，外部节点据此配置证明验证；私钥部分口令加密后十六进制保存
type keystoreFile struct {
	Version          string           `json:"version"`
	ID               string           `json:"id"`
	Principal        common.Address   `json:"principal"`
	EncryptionPubkey string           `json:"encryption_pubkey"`
	Signers          []common.Address `json:"signers"`
	Threshold        int              `json:"threshold"`
	Crypto           string           `json:"crypto"`
	CreatedAt        string           `json:"created_at"`
}

type secretPayload struct {
	EncryptionKey string   `json:"encryption_key"`
	SignerKeys    []string `json:"signer_keys"`
}

// PublicInfo 密钥库公开信息
type PublicInfo struct {
	Principal        common.Address   `json:"principal"`
	EncryptionPubkey string           `json:"encryption_pubkey"`
	Signers          []common.Address `json:"signers"`
	Threshold        int              `json:"threshold"`
}

// SaveKeystore 以口令加密保存密钥材料
func SaveKeystore(path, password string, km *KeyMaterial, enc cryptointf.EncryptionManager) error {
	if password == "" {
		return fmt.Errorf("密钥库口令不能为空")
	}

	secret := secretPayload{EncryptionKey: hex.EncodeToString(crypto.FromECDSA(km.EncryptionKey))}
	for _, key := range km.SignerKeys {
		secret.SignerKeys = append(secret.SignerKeys, hex.EncodeToString(crypto.FromECDSA(key)))
	}
	plain, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("序列化私钥失败: %w", err)
	}
	sealed, err := enc.EncryptWithPassword(plain, password)
	if err != nil {
		return fmt.Errorf("加密私钥失败: %w", err)
	}

	file := keystoreFile{
		Version:          KeystoreVersion,
		ID:               uuid.NewString(),
		Principal:        km.Principal(),
		EncryptionPubkey: hexutil.Encode(km.EncryptionPublicKey()),
		Signers:          km.Signer().Addresses(),
		Threshold:        km.Threshold,
		Crypto:           hex.EncodeToString(sealed),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化密钥库失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("创建密钥库目录失败: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadKeystore 用口令解锁密钥库
func LoadKeystore(path, password string, enc cryptointf.EncryptionManager) (*KeyMaterial, error) {
	file, err := readKeystoreFile(path)
	if err != nil {
		return nil, err
	}

	sealed, err := hex.DecodeString(file.Crypto)
	if err != nil {
		return nil, fmt.Errorf("密钥库密文格式无效: %w", err)
	}
	plain, err := enc.DecryptWithPassword(sealed, password)
	if err != nil {
		return nil, fmt.Errorf("解锁密钥库失败（口令错误？）: %w", err)
	}

	var secret secretPayload
	if err := json.Unmarshal(plain, &secret); err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}

	km := &KeyMaterial{Threshold: file.Threshold}
	if km.EncryptionKey, err = crypto.HexToECDSA(secret.EncryptionKey); err != nil {
		return nil, fmt.Errorf("加密私钥无效: %w", err)
	}
	for i, raw := range secret.SignerKeys {
		key, err := crypto.HexToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个签名私钥无效: %w", i, err)
		}
		km.SignerKeys = append(km.SignerKeys, key)
	}

	if km.Principal() != file.Principal {
		return nil, fmt.Errorf("密钥库已损坏: 主体地址不匹配")
	}
	return km, nil
}

// ReadPublicInfo 读取密钥库公开信息，不需要口令
func ReadPublicInfo(path string) (*PublicInfo, error) {
	file, err := readKeystoreFile(path)
	if err != nil {
		return nil, err
	}
	return &PublicInfo{
		Principal:        file.Principal,
		EncryptionPubkey: file.EncryptionPubkey,
		Signers:          file.Signers,
		Threshold:        file.Threshold,
	}, nil
}

func readKeystoreFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeystoreNotFound, path)
		}
		return nil, fmt.Errorf("读取密钥库失败: %w", err)
	}
	var file keystoreFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析密钥库失败: %w", err)
	}
	if file.Version != KeystoreVersion {
		return nil, fmt.Errorf("不支持的密钥库版本: %s", file.Version)
	}
	return &file, nil
}
