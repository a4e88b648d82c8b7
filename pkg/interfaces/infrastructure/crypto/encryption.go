// Package crypto 定义密码学能力接口
//
// 账本只依赖"加密值单元"能力（见 cell.go），从不接触解密；
// 解密是预言机的专属职责。
package crypto

// EncryptionManager 公钥加密与口令加密
type EncryptionManager interface {
	// Encrypt 使用公钥加密数据（ECIES）
	Encrypt(data []byte, publicKey []byte) ([]byte, error)

	// Decrypt 使用私钥解密数据
	Decrypt(encryptedData []byte, privateKey []byte) ([]byte, error)

	// EncryptWithPassword 使用口令加密数据（scrypt 派生密钥 + AES-GCM）
	EncryptWithPassword(data []byte, password string) ([]byte, error)

	// DecryptWithPassword 使用口令解密数据
	DecryptWithPassword(encryptedData []byte, password string) ([]byte, error)
}
